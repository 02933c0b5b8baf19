package crossplane

import (
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Crossplane has grown several spellings for "these are my children" over the
// years, and providers add their own. Each known location gets one extractor;
// extractReferences concatenates them in order. Adding a new convention is a
// one-line table entry.
type extractor func(obj map[string]any) []ResourceRef

// resourceRefExtractors are the locations that make up a composite's
// managed-resource root set.
var resourceRefExtractors = []extractor{
	refsAt("spec", "resourceRefs"),
	refsAt("status", "resourceRefs"),
	refsAt("status", "resources"),
	refsAt("status", "resource", "refs"),
}

// referenceExtractors is the full table applied during recursive expansion.
var referenceExtractors = append(append([]extractor{}, resourceRefExtractors...),
	connectionDetailRefs,
	refsAt("references"),
)

// extractReferences scans every known reference location on a resource and
// concatenates the results. No de-duplication happens here; cycle and
// redundancy avoidance is the visited set's job.
func extractReferences(obj map[string]any) []ResourceRef {
	return runExtractors(obj, referenceExtractors)
}

// managedResourceRefs extracts only the root-set locations of a composite.
func managedResourceRefs(obj map[string]any) []ResourceRef {
	return runExtractors(obj, resourceRefExtractors)
}

func runExtractors(obj map[string]any, table []extractor) []ResourceRef {
	var refs []ResourceRef
	for _, ex := range table {
		refs = append(refs, ex(obj)...)
	}
	return refs
}

func refsAt(fields ...string) extractor {
	return func(obj map[string]any) []ResourceRef {
		items, found, _ := unstructured.NestedSlice(obj, fields...)
		if !found {
			return nil
		}
		refs := make([]ResourceRef, 0, len(items))
		for _, it := range items {
			if ref, ok := refFrom(it); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	}
}

// connectionDetailRefs picks up status.connectionDetails entries typed
// "Reference"; their value is an opaque path to the referenced resource.
func connectionDetailRefs(obj map[string]any) []ResourceRef {
	items, found, _ := unstructured.NestedSlice(obj, "status", "connectionDetails")
	if !found {
		return nil
	}
	var refs []ResourceRef
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		t, _ := m["type"].(string)
		if !strings.EqualFold(t, "Reference") {
			continue
		}
		v, _ := m["value"].(string)
		if strings.TrimSpace(v) == "" {
			continue
		}
		refs = append(refs, ResourceRef{Path: strings.TrimSpace(v)})
	}
	return refs
}

// refFrom normalizes one raw entry. Strings are bare paths; maps carry the
// usual kind/apiVersion/name/namespace fields. Entries with neither a name
// nor a kind are dropped silently.
func refFrom(v any) (ResourceRef, bool) {
	switch e := v.(type) {
	case string:
		s := strings.TrimSpace(e)
		if s == "" {
			return ResourceRef{}, false
		}
		return ResourceRef{Path: s}, true
	case map[string]any:
		name, _ := e["name"].(string)
		kind, _ := e["kind"].(string)
		if name == "" && kind == "" {
			return ResourceRef{}, false
		}
		apiVersion, _ := e["apiVersion"].(string)
		namespace, _ := e["namespace"].(string)
		return ResourceRef{
			Kind:       kind,
			APIVersion: apiVersion,
			Name:       name,
			Namespace:  namespace,
		}, true
	default:
		return ResourceRef{}, false
	}
}
