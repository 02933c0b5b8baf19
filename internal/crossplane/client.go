package crossplane

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Claim is a summarized claim row for the sidebar. Object holds the full
// fetched resource and is what gets traced.
type Claim struct {
	Name        string
	Namespace   string
	Kind        string
	APIVersion  string
	Composition string
	Ready       string // condition status: True/False/Unknown or ""
	Synced      string
	Object      map[string]any
}

// Client is the interface the UI depends on.
//
// Keep it narrow: the UI shouldn't know about paths or transport details.
type Client interface {
	ListClaims(ctx context.Context) ([]Claim, error)
	Trace(ctx context.Context, claim Claim) (*ResourceTrace, error)
	ListPackages(ctx context.Context) ([]Package, error)
}

// Explorer is the live Client: it discovers claims via the cluster's
// CompositeResourceDefinitions and traces them with a Tracer.
type Explorer struct {
	Gateway Gateway
	Tracer  *Tracer
	Logger  *slog.Logger
}

func NewExplorer(gw Gateway) *Explorer {
	return &Explorer{
		Gateway: gw,
		Tracer:  NewTracer(gw),
		Logger:  slog.Default(),
	}
}

func (e *Explorer) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// ListClaims walks the installed XRDs, keeps those that offer claim names,
// and lists the claim resources of each served version across all
// namespaces. A broken XRD or an unreachable claim API skips that XRD only.
func (e *Explorer) ListClaims(ctx context.Context) ([]Claim, error) {
	xrds, err := e.Gateway.Fetch(ctx, http.MethodGet, compositionAPI+"/compositeresourcedefinitions", nil)
	if err != nil {
		return nil, fmt.Errorf("list composite resource definitions: %w", err)
	}

	var claims []Claim
	items, _, _ := unstructured.NestedSlice(xrds, "items")
	for _, it := range items {
		xrd, ok := it.(map[string]any)
		if !ok {
			continue
		}
		kind, _, _ := unstructured.NestedString(xrd, "spec", "claimNames", "kind")
		if kind == "" {
			continue
		}
		plural, _, _ := unstructured.NestedString(xrd, "spec", "claimNames", "plural")
		if plural == "" {
			plural = pluralize(kind)
		}
		group, _, _ := unstructured.NestedString(xrd, "spec", "group")
		version := servedVersion(xrd)
		if group == "" || version == "" {
			continue
		}

		list, err := e.Gateway.Fetch(ctx, http.MethodGet, "/apis/"+group+"/"+version+"/"+plural, nil)
		if err != nil {
			e.logger().Debug("claim list failed", "kind", kind, "err", err)
			continue
		}
		claimItems, _, _ := unstructured.NestedSlice(list, "items")
		for _, ci := range claimItems {
			obj, ok := ci.(map[string]any)
			if !ok {
				continue
			}
			claims = append(claims, summarizeClaim(obj))
		}
	}

	sort.Slice(claims, func(i, j int) bool {
		if claims[i].Namespace != claims[j].Namespace {
			return claims[i].Namespace < claims[j].Namespace
		}
		return claims[i].Name < claims[j].Name
	})
	return claims, nil
}

func (e *Explorer) Trace(ctx context.Context, claim Claim) (*ResourceTrace, error) {
	return e.Tracer.AssembleTrace(ctx, claim.Object)
}

func (e *Explorer) ListPackages(ctx context.Context) ([]Package, error) {
	return e.Tracer.newRun().fetchPackages(ctx), nil
}

// servedVersion picks the first served entry of spec.versions.
func servedVersion(xrd map[string]any) string {
	versions, _, _ := unstructured.NestedSlice(xrd, "spec", "versions")
	first := ""
	for _, v := range versions {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		if first == "" {
			first = name
		}
		if served, _ := m["served"].(bool); served {
			return name
		}
	}
	return first
}

func summarizeClaim(obj map[string]any) Claim {
	fr := &FetchedResource{Object: obj}
	composition, _, _ := unstructured.NestedString(obj, "spec", "compositionRef", "name")
	return Claim{
		Name:        fr.Name(),
		Namespace:   fr.Namespace(),
		Kind:        fr.Kind(),
		APIVersion:  fr.APIVersion(),
		Composition: composition,
		Ready:       fr.Condition("Ready"),
		Synced:      fr.Condition("Synced"),
		Object:      obj,
	}
}
