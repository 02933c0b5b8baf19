package crossplane

import (
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ResourceRef identifies a resource to fetch. Either Kind/APIVersion/Name
// (plus optional Namespace) are set, or Path carries a bare reference that is
// used as an API path verbatim.
type ResourceRef struct {
	Kind       string
	APIVersion string
	Name       string
	Namespace  string
	Path       string
}

func (r ResourceRef) isBarePath() bool { return r.Path != "" }

// Identity is the visited-set key used to break cycles and avoid redundant
// fetches. Once an identity is claimed for a trace run it is never fetched
// again in that run.
type Identity struct {
	Kind       string
	APIVersion string
	Namespace  string
	Name       string
}

func (r ResourceRef) identity() Identity {
	if r.isBarePath() {
		// Bare path refs have no structured identity; the path itself is the
		// best stable key we have.
		return Identity{Name: r.Path}
	}
	return Identity{
		Kind:       r.Kind,
		APIVersion: r.APIVersion,
		Namespace:  r.Namespace,
		Name:       r.Name,
	}
}

// Event is a cluster event attached to a fetched resource.
type Event struct {
	Type      string
	Reason    string
	Message   string
	Timestamp string
	Count     int64
}

// ConnectionDetail is a normalized entry of status.connectionDetails.
type ConnectionDetail struct {
	Type      string
	Name      string
	Value     string
	Sensitive bool
}

// PropagatedStatus is the bottom-up aggregate over a node's direct
// dependencies: Ready/Synced are true iff every direct dependency reports the
// matching condition as True. A node with no dependencies is vacuously
// ready and synced.
type PropagatedStatus struct {
	Ready  bool
	Synced bool
}

// FetchedResource is a raw API object augmented with the metadata the
// dashboard renders next to it.
type FetchedResource struct {
	Object            map[string]any
	Events            []Event
	ConnectionDetails []ConnectionDetail
	Dependencies      []*FetchedResource
	Propagated        PropagatedStatus
}

func (r *FetchedResource) nestedString(fields ...string) string {
	s, _, _ := unstructured.NestedString(r.Object, fields...)
	return s
}

func (r *FetchedResource) Kind() string       { return r.nestedString("kind") }
func (r *FetchedResource) APIVersion() string { return r.nestedString("apiVersion") }
func (r *FetchedResource) Name() string       { return r.nestedString("metadata", "name") }
func (r *FetchedResource) Namespace() string  { return r.nestedString("metadata", "namespace") }
func (r *FetchedResource) UID() string        { return r.nestedString("metadata", "uid") }

// Condition returns the status string ("True", "False", "Unknown", or "")
// of the named condition type under status.conditions.
func (r *FetchedResource) Condition(condType string) string {
	conds, _, _ := unstructured.NestedSlice(r.Object, "status", "conditions")
	for _, c := range conds {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		t, _ := m["type"].(string)
		if !strings.EqualFold(t, condType) {
			continue
		}
		s, _ := m["status"].(string)
		return s
	}
	return ""
}

// ConditionTrue reports whether the named condition exists with status True.
func (r *FetchedResource) ConditionTrue(condType string) bool {
	return r.Condition(condType) == "True"
}

func (r *FetchedResource) identity() Identity {
	return Identity{
		Kind:       r.Kind(),
		APIVersion: r.APIVersion(),
		Namespace:  r.Namespace(),
		Name:       r.Name(),
	}
}

// propagatedFrom computes the aggregate status over direct dependencies.
func propagatedFrom(deps []*FetchedResource) PropagatedStatus {
	p := PropagatedStatus{Ready: true, Synced: true}
	for _, d := range deps {
		if !d.ConditionTrue("Ready") {
			p.Ready = false
		}
		if !d.ConditionTrue("Synced") {
			p.Synced = false
		}
	}
	return p
}

// CompositionInfo bundles a Composition with its revision history.
type CompositionInfo struct {
	Composition    map[string]any
	ActiveRevision map[string]any
	Revisions      []map[string]any
}

// PackageDependency is one entry of a package's declared spec.dependsOn.
type PackageDependency struct {
	Package string
	Version string
}

// Package is an installed Crossplane package: provider, function or
// configuration.
type Package struct {
	Object    map[string]any
	Type      string
	Name      string
	DependsOn []PackageDependency
}

// ResourceTrace is the assembled tree for one claim. It is built fresh per
// AssembleTrace call and never mutated afterwards.
type ResourceTrace struct {
	Claim            *FetchedResource
	Composite        *FetchedResource
	Composition      *CompositionInfo
	ManagedResources []*FetchedResource
	Packages         []Package
}
