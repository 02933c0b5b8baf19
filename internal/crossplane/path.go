package crossplane

import "strings"

// pluralize lower-cases a kind and appends "s" unless it already ends in one.
// This is a guess, not a discovery call; resolvePath callers are expected to
// tolerate wrong guesses via the 404 rescoping retry.
func pluralize(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" || strings.HasSuffix(k, "s") {
		return k
	}
	return k + "s"
}

// splitAPIVersion splits "group/version" into its parts. A bare "v1" is the
// core group.
func splitAPIVersion(apiVersion string) (group, version string) {
	if i := strings.IndexByte(apiVersion, '/'); i >= 0 {
		return apiVersion[:i], apiVersion[i+1:]
	}
	return "", apiVersion
}

func clusterScopedPath(group, version, plural, name string) string {
	if group == "" {
		return "/api/" + version + "/" + plural + "/" + name
	}
	return "/apis/" + group + "/" + version + "/" + plural + "/" + name
}

func namespacedPath(group, version, namespace, plural, name string) string {
	if group == "" {
		return "/api/" + version + "/namespaces/" + namespace + "/" + plural + "/" + name
	}
	return "/apis/" + group + "/" + version + "/namespaces/" + namespace + "/" + plural + "/" + name
}

// resolvePath builds the API path for a reference, or "" when the reference
// carries too little information to resolve. Groups containing "aws" are
// always treated as cluster-scoped regardless of any namespace on the ref;
// that matches how the AWS provider families actually register their CRDs.
func resolvePath(ref ResourceRef) string {
	if ref.isBarePath() {
		return ref.Path
	}
	if ref.Kind == "" || ref.Name == "" {
		return ""
	}

	plural := pluralize(ref.Kind)
	group, version := splitAPIVersion(ref.APIVersion)
	if version == "" {
		return ""
	}

	if strings.Contains(group, "aws") {
		return clusterScopedPath(group, version, plural, ref.Name)
	}
	if ref.Namespace != "" {
		return namespacedPath(group, version, ref.Namespace, plural, ref.Name)
	}
	return clusterScopedPath(group, version, plural, ref.Name)
}

// isNamespacedPath reports whether a path carries a namespace segment.
func isNamespacedPath(path string) bool {
	return strings.Contains(path, "/namespaces/")
}

// rescopedPath flips the scope of a resource path: a namespaced path loses
// its namespaces/<ns> segments, a cluster-scoped one gains them (placed
// before the trailing plural/name pair). Returns "" when the path is too
// short to rescope.
func rescopedPath(path, namespace string) string {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")

	if isNamespacedPath(path) {
		for i, s := range segs {
			if s == "namespaces" && i+1 < len(segs) {
				out := append(append([]string{}, segs[:i]...), segs[i+2:]...)
				return "/" + strings.Join(out, "/")
			}
		}
	}

	// plural/name are the last two segments.
	if len(segs) < 2 || namespace == "" {
		return ""
	}
	i := len(segs) - 2
	out := append(append([]string{}, segs[:i]...), "namespaces", namespace)
	out = append(out, segs[i:]...)
	return "/" + strings.Join(out, "/")
}
