package crossplane

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const compositionAPI = "/apis/apiextensions.crossplane.io/v1"

// TraceError aborts a whole trace assembly. Only two conditions earn it: the
// claim carries no composite reference, or the composite itself cannot be
// fetched. Every other sub-fetch failure degrades to an omitted node or an
// empty list, because a partial trace is more useful to an operator than none.
type TraceError struct {
	Reason string
	Err    error
}

func (e *TraceError) Error() string {
	if e.Err == nil {
		return "trace failed: " + e.Reason
	}
	return fmt.Sprintf("trace failed: %s: %v", e.Reason, e.Err)
}

func (e *TraceError) Unwrap() error { return e.Err }

// Tracer assembles the resource tree beneath a claim by walking the
// Crossplane ownership graph through a Gateway.
type Tracer struct {
	Gateway          Gateway
	Logger           *slog.Logger
	MaxDepth         int
	DefaultNamespace string
}

func NewTracer(gw Gateway) *Tracer {
	return &Tracer{
		Gateway:          gw,
		Logger:           slog.Default(),
		MaxDepth:         10,
		DefaultNamespace: "default",
	}
}

// traceRun is the per-invocation state: the visited set is owned by one run
// and must never leak across runs.
type traceRun struct {
	*Tracer

	mu      sync.Mutex
	visited map[Identity]struct{}
}

// newRun snapshots the tracer with defaults applied and a fresh visited set.
func (t *Tracer) newRun() *traceRun {
	tt := *t
	if tt.Logger == nil {
		tt.Logger = slog.Default()
	}
	if tt.MaxDepth <= 0 {
		tt.MaxDepth = 10
	}
	if tt.DefaultNamespace == "" {
		tt.DefaultNamespace = "default"
	}
	return &traceRun{Tracer: &tt, visited: make(map[Identity]struct{})}
}

// visit atomically claims an identity for this run. The first caller wins;
// everyone else gets false and must yield a nil node. Which sibling wins a
// race is irrelevant, only that exactly one does.
func (r *traceRun) visit(id Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visited[id]; ok {
		return false
	}
	r.visited[id] = struct{}{}
	return true
}

// AssembleTrace walks the graph below a claim object and returns the
// assembled trace. The claim is taken as supplied; only its composite
// reference is required.
func (t *Tracer) AssembleTrace(ctx context.Context, claim map[string]any) (*ResourceTrace, error) {
	run := t.newRun()

	compositeRef, found, _ := unstructured.NestedMap(claim, "spec", "resourceRef")
	if !found || compositeRef == nil {
		return nil, &TraceError{Reason: "claim has no composite reference (spec.resourceRef)"}
	}
	ref, ok := refFrom(compositeRef)
	if !ok {
		return nil, &TraceError{Reason: "claim composite reference has neither name nor kind"}
	}

	claimNode := &FetchedResource{Object: claim}
	run.visit(claimNode.identity())
	run.visit(ref.identity())

	path := resolvePath(ref)
	if path == "" {
		return nil, &TraceError{Reason: "claim composite reference is unresolvable"}
	}
	obj, err := run.fetchResource(ctx, path, ref.Namespace)
	if err != nil {
		return nil, &TraceError{Reason: "composite fetch failed", Err: err}
	}
	composite := &FetchedResource{Object: obj}
	run.visit(composite.identity())

	// Events and connection details degrade to empty, never abort.
	claimNode.Events = run.fetchEvents(ctx, claimNode)
	claimNode.ConnectionDetails = connectionDetails(claim)
	claimNode.Propagated = propagatedFrom(nil)
	composite.Events = run.fetchEvents(ctx, composite)
	composite.ConnectionDetails = connectionDetails(obj)

	roots := managedResourceRefs(composite.Object)
	composite.Dependencies = run.expandAll(ctx, roots, 0)
	composite.Propagated = propagatedFrom(composite.Dependencies)

	return &ResourceTrace{
		Claim:            claimNode,
		Composite:        composite,
		Composition:      run.resolveComposition(ctx, composite),
		ManagedResources: composite.Dependencies,
		Packages:         run.fetchPackages(ctx),
	}, nil
}

// expandAll fans out over sibling references concurrently and joins the
// results, preserving input order and dropping nil branches. Sibling failures
// are independent: a hung or failed branch never poisons its neighbors.
func (r *traceRun) expandAll(ctx context.Context, refs []ResourceRef, depth int) []*FetchedResource {
	if len(refs) == 0 {
		return nil
	}

	results := make([]*FetchedResource, len(refs))
	g := new(errgroup.Group)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			results[i] = r.fetchResourceAndDependencies(ctx, ref, depth)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*FetchedResource, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// fetchResourceAndDependencies resolves, fetches and recursively expands one
// reference. It returns nil — never an error — when the branch should be
// omitted: depth exhausted, identity already visited, unresolvable reference,
// or a fetch failure that survived the rescoping retry.
func (r *traceRun) fetchResourceAndDependencies(ctx context.Context, ref ResourceRef, depth int) *FetchedResource {
	if depth >= r.MaxDepth {
		r.Logger.Debug("max trace depth reached", "depth", depth, "kind", ref.Kind, "name", ref.Name)
		return nil
	}
	if !r.visit(ref.identity()) {
		return nil
	}

	path := resolvePath(ref)
	if path == "" {
		r.Logger.Debug("skipping unresolvable reference", "kind", ref.Kind, "name", ref.Name)
		return nil
	}

	obj, err := r.fetchResource(ctx, path, ref.Namespace)
	if err != nil {
		r.Logger.Debug("dropping unreachable resource", "path", path, "err", err)
		return nil
	}
	node := &FetchedResource{Object: obj}
	// Bare-path refs get a structured identity only now; claim it too so a
	// later structured ref to the same object is suppressed.
	r.visit(node.identity())

	node.Events = r.fetchEvents(ctx, node)
	node.ConnectionDetails = connectionDetails(obj)
	node.Dependencies = r.expandAll(ctx, extractReferences(obj), depth+1)
	node.Propagated = propagatedFrom(node.Dependencies)
	return node
}

// fetchResource fetches a path, retrying exactly once with the opposite scope
// on 404. A namespaced path retries cluster-scoped; a cluster-scoped one
// retries under the ref's namespace or the run default. A second failure is
// final and the original error is returned.
func (r *traceRun) fetchResource(ctx context.Context, path, namespace string) (map[string]any, error) {
	obj, err := r.Gateway.Fetch(ctx, http.MethodGet, path, nil)
	if err == nil {
		return obj, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	ns := namespace
	if ns == "" {
		ns = r.DefaultNamespace
	}
	retry := rescopedPath(path, ns)
	if retry == "" {
		return nil, err
	}
	r.Logger.Debug("404, retrying with flipped scope", "path", path, "retry", retry)
	obj, retryErr := r.Gateway.Fetch(ctx, http.MethodGet, retry, nil)
	if retryErr != nil {
		return nil, err
	}
	return obj, nil
}

// fetchEvents lists the events involving a resource, matched on name, kind
// and (when both sides have one) uid. Failures degrade to no events.
func (r *traceRun) fetchEvents(ctx context.Context, res *FetchedResource) []Event {
	name := res.Name()
	if name == "" {
		return nil
	}

	path := "/api/v1/events"
	if ns := res.Namespace(); ns != "" {
		path = "/api/v1/namespaces/" + ns + "/events"
	}
	path += "?fieldSelector=" + url.QueryEscape("involvedObject.name="+name)

	list, err := r.Gateway.Fetch(ctx, http.MethodGet, path, nil)
	if err != nil {
		r.Logger.Debug("event fetch failed", "name", name, "err", err)
		return nil
	}

	items, _, _ := unstructured.NestedSlice(list, "items")
	events := make([]Event, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		ioName, _, _ := unstructured.NestedString(m, "involvedObject", "name")
		ioKind, _, _ := unstructured.NestedString(m, "involvedObject", "kind")
		ioUID, _, _ := unstructured.NestedString(m, "involvedObject", "uid")
		if ioName != name || ioKind != res.Kind() {
			continue
		}
		if uid := res.UID(); uid != "" && ioUID != "" && ioUID != uid {
			continue
		}

		ts, _, _ := unstructured.NestedString(m, "lastTimestamp")
		if ts == "" {
			ts, _, _ = unstructured.NestedString(m, "firstTimestamp")
		}
		count, _, _ := unstructured.NestedInt64(m, "count")
		evType, _ := m["type"].(string)
		reason, _ := m["reason"].(string)
		message, _ := m["message"].(string)
		events = append(events, Event{
			Type:      evType,
			Reason:    reason,
			Message:   message,
			Timestamp: ts,
			Count:     count,
		})
	}
	return events
}

// connectionDetails normalizes status.connectionDetails. A parse issue on one
// entry drops that entry only.
func connectionDetails(obj map[string]any) []ConnectionDetail {
	items, found, _ := unstructured.NestedSlice(obj, "status", "connectionDetails")
	if !found {
		return nil
	}
	details := make([]ConnectionDetail, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		d := ConnectionDetail{}
		d.Type, _ = m["type"].(string)
		d.Name, _ = m["name"].(string)
		d.Value, _ = m["value"].(string)
		d.Sensitive, _ = m["sensitive"].(bool)
		details = append(details, d)
	}
	return details
}

// resolveComposition resolves the composite's compositionRef into the
// Composition, its matching revisions and the active revision. Nil when the
// ref is absent or the composition fetch fails; partial on revision failures.
func (r *traceRun) resolveComposition(ctx context.Context, composite *FetchedResource) *CompositionInfo {
	name := composite.nestedString("spec", "compositionRef", "name")
	if name == "" {
		return nil
	}

	comp, err := r.Gateway.Fetch(ctx, http.MethodGet, compositionAPI+"/compositions/"+name, nil)
	if err != nil {
		r.Logger.Debug("composition fetch failed", "composition", name, "err", err)
		return nil
	}
	info := &CompositionInfo{Composition: comp}

	if list, err := r.Gateway.Fetch(ctx, http.MethodGet, compositionAPI+"/compositionrevisions", nil); err == nil {
		items, _, _ := unstructured.NestedSlice(list, "items")
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			refName, _, _ := unstructured.NestedString(m, "spec", "compositionRef", "name")
			if refName == name {
				info.Revisions = append(info.Revisions, m)
			}
		}
	} else {
		r.Logger.Debug("composition revision list failed", "composition", name, "err", err)
	}

	if active, err := r.Gateway.Fetch(ctx, http.MethodGet, compositionAPI+"/compositionrevisions/"+name, nil); err == nil {
		info.ActiveRevision = active
	}

	return info
}

// fetchPackages lists the installed providers, functions and configurations
// cluster-wide. This is informational context, independent of the recursive
// walk; any failure absorbs to an empty list.
func (r *traceRun) fetchPackages(ctx context.Context) []Package {
	kinds := []struct {
		typ  string
		path string
	}{
		{"provider", "/apis/pkg.crossplane.io/v1/providers"},
		{"function", "/apis/pkg.crossplane.io/v1/functions"},
		{"configuration", "/apis/pkg.crossplane.io/v1/configurations"},
	}

	var pkgs []Package
	for _, k := range kinds {
		list, err := r.Gateway.Fetch(ctx, http.MethodGet, k.path, nil)
		if err != nil {
			r.Logger.Debug("package list failed", "type", k.typ, "err", err)
			continue
		}
		items, _, _ := unstructured.NestedSlice(list, "items")
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			name, _, _ := unstructured.NestedString(m, "metadata", "name")
			pkgs = append(pkgs, Package{
				Object:    m,
				Type:      k.typ,
				Name:      name,
				DependsOn: packageDependencies(m),
			})
		}
	}
	return pkgs
}

func packageDependencies(obj map[string]any) []PackageDependency {
	items, found, _ := unstructured.NestedSlice(obj, "spec", "dependsOn")
	if !found {
		return nil
	}
	deps := make([]PackageDependency, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		d := PackageDependency{}
		// The package name lives under one of several typed keys.
		for _, key := range []string{"package", "provider", "configuration", "function"} {
			if v, _ := m[key].(string); v != "" {
				d.Package = v
				break
			}
		}
		d.Version, _ = m["version"].(string)
		if d.Package == "" {
			continue
		}
		deps = append(deps, d)
	}
	return deps
}
