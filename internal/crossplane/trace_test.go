package crossplane

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway serves scripted responses by exact path. Unknown paths 404,
// which doubles as the absorbed-failure default for events, composition and
// package fetches.
type fakeGateway struct {
	mu      sync.Mutex
	objects map[string]map[string]any
	errs    map[string]error
	calls   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		objects: map[string]map[string]any{},
		errs:    map[string]error{},
	}
}

func (f *fakeGateway) Fetch(ctx context.Context, method, path string, body any) (map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if obj, ok := f.objects[path]; ok {
		return obj, nil
	}
	return nil, &FetchError{StatusCode: 404, Message: "not found"}
}

func (f *fakeGateway) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == path {
			n++
		}
	}
	return n
}

func quietTracer(gw Gateway) *Tracer {
	t := NewTracer(gw)
	t.Logger = slog.New(slog.NewTextHandler(discard{}, nil))
	return t
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// addRefs appends structured references under the given spec/status location.
func addRefs(obj map[string]any, location string, refs ...map[string]any) {
	items := make([]any, 0, len(refs))
	for _, r := range refs {
		items = append(items, r)
	}
	switch location {
	case "spec.resourceRefs":
		obj["spec"].(map[string]any)["resourceRefs"] = items
	case "status.resourceRefs":
		st, _ := obj["status"].(map[string]any)
		if st == nil {
			st = map[string]any{}
			obj["status"] = st
		}
		st["resourceRefs"] = items
	}
}

func testClaim() map[string]any {
	claim := mockObject("database.example.org/v1alpha1", "PostgreSQLInstance", "orders-db", "orders", "True", "True")
	claim["spec"].(map[string]any)["resourceRef"] = map[string]any{
		"apiVersion": "database.example.org/v1alpha1",
		"kind":       "XPostgreSQLInstance",
		"name":       "orders-db-x",
	}
	return claim
}

const compositePath = "/apis/database.example.org/v1alpha1/xpostgresqlinstances/orders-db-x"

func TestAssembleTrace_CompositeVerbatim(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	gw.objects[compositePath] = composite

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	require.NotNil(t, tr.Composite)
	assert.Equal(t, composite, tr.Composite.Object)
	assert.Empty(t, tr.ManagedResources)
	assert.Nil(t, tr.Composition)
}

func TestAssembleTrace_FatalCases(t *testing.T) {
	t.Run("no composite reference", func(t *testing.T) {
		claim := mockObject("database.example.org/v1alpha1", "PostgreSQLInstance", "orders-db", "orders", "True", "True")
		_, err := quietTracer(newFakeGateway()).AssembleTrace(context.Background(), claim)
		var te *TraceError
		require.ErrorAs(t, err, &te)
	})

	t.Run("composite unreachable", func(t *testing.T) {
		gw := newFakeGateway()
		gw.errs[compositePath] = &FetchError{StatusCode: 500, Message: "boom"}
		_, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
		var te *TraceError
		require.ErrorAs(t, err, &te)
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 500, fe.StatusCode)
	})
}

func TestAssembleTrace_AWSGroupAlwaysClusterScoped(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	// The namespace on the ref must be ignored for an aws group.
	addRefs(composite, "spec.resourceRefs", map[string]any{
		"apiVersion": "s3.aws.crossplane.io/v1beta1",
		"kind":       "Bucket",
		"name":       "b1",
		"namespace":  "orders",
	})
	gw.objects[compositePath] = composite
	bucketPath := "/apis/s3.aws.crossplane.io/v1beta1/buckets/b1"
	gw.objects[bucketPath] = mockObject("s3.aws.crossplane.io/v1beta1", "Bucket", "b1", "", "True", "True")

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	require.Len(t, tr.ManagedResources, 1)
	assert.Equal(t, "b1", tr.ManagedResources[0].Name())
	assert.Equal(t, 1, gw.callCount(bucketPath))
	assert.Zero(t, gw.callCount("/apis/s3.aws.crossplane.io/v1beta1/namespaces/orders/buckets/b1"))
}

func TestAssembleTrace_DuplicateIdentityFetchedOnce(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	addRefs(composite, "spec.resourceRefs",
		map[string]any{"apiVersion": "things.io/v1", "kind": "Parent", "name": "a"},
		map[string]any{"apiVersion": "things.io/v1", "kind": "Parent", "name": "b"},
	)
	gw.objects[compositePath] = composite

	shared := map[string]any{"apiVersion": "things.io/v1", "kind": "Child", "name": "shared"}
	parentA := mockObject("things.io/v1", "Parent", "a", "", "True", "True")
	addRefs(parentA, "spec.resourceRefs", shared)
	parentB := mockObject("things.io/v1", "Parent", "b", "", "True", "True")
	addRefs(parentB, "spec.resourceRefs", shared)
	gw.objects["/apis/things.io/v1/parents/a"] = parentA
	gw.objects["/apis/things.io/v1/parents/b"] = parentB
	sharedPath := "/apis/things.io/v1/childs/shared"
	gw.objects[sharedPath] = mockObject("things.io/v1", "Child", "shared", "", "True", "True")

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	require.Len(t, tr.ManagedResources, 2)
	assert.Equal(t, 1, gw.callCount(sharedPath))
	assert.Equal(t, 1, countNodes(tr.ManagedResources, "shared"))
}

func countNodes(roots []*FetchedResource, name string) int {
	n := 0
	for _, r := range roots {
		if r.Name() == name {
			n++
		}
		n += countNodes(r.Dependencies, name)
	}
	return n
}

func TestAssembleTrace_DepthTruncation(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	addRefs(composite, "spec.resourceRefs", map[string]any{"apiVersion": "things.io/v1", "kind": "Link", "name": "link-0"})
	gw.objects[compositePath] = composite

	// A chain one longer than MaxDepth with no repeated identity.
	for i := 0; i < 4; i++ {
		obj := mockObject("things.io/v1", "Link", nameAt(i), "", "True", "True")
		addRefs(obj, "spec.resourceRefs", map[string]any{"apiVersion": "things.io/v1", "kind": "Link", "name": nameAt(i + 1)})
		gw.objects["/apis/things.io/v1/links/"+nameAt(i)] = obj
	}

	tracer := quietTracer(gw)
	tracer.MaxDepth = 3
	tr, err := tracer.AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)

	// link-0 at depth 0 through link-2 at depth 2 survive; link-3 is cut.
	require.Len(t, tr.ManagedResources, 1)
	node := tr.ManagedResources[0]
	assert.Equal(t, "link-0", node.Name())
	require.Len(t, node.Dependencies, 1)
	require.Len(t, node.Dependencies[0].Dependencies, 1)
	tail := node.Dependencies[0].Dependencies[0]
	assert.Equal(t, "link-2", tail.Name())
	assert.Empty(t, tail.Dependencies)
	assert.Zero(t, gw.callCount("/apis/things.io/v1/links/link-3"))
}

func nameAt(i int) string { return "link-" + string(rune('0'+i)) }

func TestFetchResource_RescopeRetries(t *testing.T) {
	t.Run("namespaced 404 retries cluster-scoped", func(t *testing.T) {
		gw := newFakeGateway()
		clusterPath := "/apis/things.io/v1/widgets/w1"
		gw.objects[clusterPath] = mockObject("things.io/v1", "Widget", "w1", "", "True", "True")

		run := quietTracer(gw).newRun()
		nsPath := "/apis/things.io/v1/namespaces/demo/widgets/w1"
		obj, err := run.fetchResource(context.Background(), nsPath, "demo")
		require.NoError(t, err)
		assert.Equal(t, "w1", (&FetchedResource{Object: obj}).Name())
		assert.Equal(t, 1, gw.callCount(nsPath))
		assert.Equal(t, 1, gw.callCount(clusterPath))
	})

	t.Run("cluster-scoped 404 retries with default namespace", func(t *testing.T) {
		gw := newFakeGateway()
		nsPath := "/apis/things.io/v1/namespaces/default/widgets/w1"
		gw.objects[nsPath] = mockObject("things.io/v1", "Widget", "w1", "default", "True", "True")

		run := quietTracer(gw).newRun()
		clusterPath := "/apis/things.io/v1/widgets/w1"
		obj, err := run.fetchResource(context.Background(), clusterPath, "")
		require.NoError(t, err)
		assert.Equal(t, "w1", (&FetchedResource{Object: obj}).Name())
		assert.Equal(t, 1, gw.callCount(clusterPath))
		assert.Equal(t, 1, gw.callCount(nsPath))
	})

	t.Run("second 404 is final", func(t *testing.T) {
		gw := newFakeGateway()
		run := quietTracer(gw).newRun()
		_, err := run.fetchResource(context.Background(), "/apis/things.io/v1/widgets/w1", "")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		// One original attempt plus exactly one retry.
		assert.Len(t, gw.calls, 2)
	})

	t.Run("non-404 does not retry", func(t *testing.T) {
		gw := newFakeGateway()
		path := "/apis/things.io/v1/widgets/w1"
		gw.errs[path] = errors.New("connection refused")
		run := quietTracer(gw).newRun()
		_, err := run.fetchResource(context.Background(), path, "")
		require.Error(t, err)
		assert.Len(t, gw.calls, 1)
	})
}

func TestAssembleTrace_PropagatedStatus(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	addRefs(composite, "spec.resourceRefs",
		map[string]any{"apiVersion": "things.io/v1", "kind": "Widget", "name": "ok"},
		map[string]any{"apiVersion": "things.io/v1", "kind": "Widget", "name": "bad"},
	)
	gw.objects[compositePath] = composite
	gw.objects["/apis/things.io/v1/widgets/ok"] = mockObject("things.io/v1", "Widget", "ok", "", "True", "True")
	gw.objects["/apis/things.io/v1/widgets/bad"] = mockObject("things.io/v1", "Widget", "bad", "", "False", "True")

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)

	// Leaves have zero dependencies: vacuously ready and synced.
	for _, mr := range tr.ManagedResources {
		assert.True(t, mr.Propagated.Ready, mr.Name())
		assert.True(t, mr.Propagated.Synced, mr.Name())
	}
	// The composite aggregates over both.
	assert.False(t, tr.Composite.Propagated.Ready)
	assert.True(t, tr.Composite.Propagated.Synced)
}

func TestAssembleTrace_CompositionResolution(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	composite["spec"].(map[string]any)["compositionRef"] = map[string]any{"name": "xpg.aws.example.org"}
	gw.objects[compositePath] = composite

	comp := mockObject("apiextensions.crossplane.io/v1", "Composition", "xpg.aws.example.org", "", "", "")
	gw.objects[compositionAPI+"/compositions/xpg.aws.example.org"] = comp

	matching := mockObject("apiextensions.crossplane.io/v1", "CompositionRevision", "xpg.aws.example.org-1", "", "", "")
	matching["spec"].(map[string]any)["compositionRef"] = map[string]any{"name": "xpg.aws.example.org"}
	other := mockObject("apiextensions.crossplane.io/v1", "CompositionRevision", "other-1", "", "", "")
	other["spec"].(map[string]any)["compositionRef"] = map[string]any{"name": "other"}
	gw.objects[compositionAPI+"/compositionrevisions"] = map[string]any{"items": []any{matching, other}}

	active := mockObject("apiextensions.crossplane.io/v1", "CompositionRevision", "xpg.aws.example.org", "", "", "")
	gw.objects[compositionAPI+"/compositionrevisions/xpg.aws.example.org"] = active

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	require.NotNil(t, tr.Composition)
	assert.Equal(t, comp, tr.Composition.Composition)
	require.Len(t, tr.Composition.Revisions, 1)
	assert.Equal(t, active, tr.Composition.ActiveRevision)
}

func TestAssembleTrace_CompositionAbsent(t *testing.T) {
	gw := newFakeGateway()
	gw.objects[compositePath] = mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	assert.Nil(t, tr.Composition)
}

func TestAssembleTrace_EventsAndConnectionDetails(t *testing.T) {
	gw := newFakeGateway()
	composite := mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")
	addRefs(composite, "spec.resourceRefs", map[string]any{"apiVersion": "things.io/v1", "kind": "Widget", "name": "w1"})
	gw.objects[compositePath] = composite

	widget := mockObject("things.io/v1", "Widget", "w1", "", "True", "True")
	widget["status"].(map[string]any)["connectionDetails"] = []any{
		map[string]any{"type": "Text", "name": "endpoint", "value": "w1.example.com"},
		map[string]any{"type": "Text", "name": "password", "value": "hunter2", "sensitive": true},
	}
	gw.objects["/apis/things.io/v1/widgets/w1"] = widget

	gw.objects["/api/v1/events?fieldSelector=involvedObject.name%3Dw1"] = map[string]any{
		"items": []any{
			map[string]any{
				"type": "Warning", "reason": "CannotCreate", "message": "nope",
				"lastTimestamp":  "2026-08-20T10:00:00Z",
				"count":          int64(3),
				"involvedObject": map[string]any{"name": "w1", "kind": "Widget", "uid": "uid-w1"},
			},
			// Same name, different kind: must be filtered out.
			map[string]any{
				"type": "Normal", "reason": "Other", "message": "different kind",
				"involvedObject": map[string]any{"name": "w1", "kind": "Gadget"},
			},
		},
	}

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	require.Len(t, tr.ManagedResources, 1)
	node := tr.ManagedResources[0]

	require.Len(t, node.Events, 1)
	assert.Equal(t, "CannotCreate", node.Events[0].Reason)
	assert.Equal(t, int64(3), node.Events[0].Count)

	require.Len(t, node.ConnectionDetails, 2)
	assert.False(t, node.ConnectionDetails[0].Sensitive)
	assert.True(t, node.ConnectionDetails[1].Sensitive)
}

func TestAssembleTrace_Packages(t *testing.T) {
	gw := newFakeGateway()
	gw.objects[compositePath] = mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x", "", "True", "True")

	provider := mockObject("pkg.crossplane.io/v1", "Provider", "provider-aws-s3", "", "", "")
	provider["spec"].(map[string]any)["dependsOn"] = []any{
		map[string]any{"provider": "xpkg.upbound.io/upbound/provider-family-aws", "version": ">=v1.0.0"},
	}
	gw.objects["/apis/pkg.crossplane.io/v1/providers"] = map[string]any{"items": []any{provider}}
	// Functions and configurations 404: absorbed.

	tr, err := quietTracer(gw).AssembleTrace(context.Background(), testClaim())
	require.NoError(t, err)
	require.Len(t, tr.Packages, 1)
	assert.Equal(t, "provider", tr.Packages[0].Type)
	require.Len(t, tr.Packages[0].DependsOn, 1)
	assert.Equal(t, "xpkg.upbound.io/upbound/provider-family-aws", tr.Packages[0].DependsOn[0].Package)
	assert.Equal(t, ">=v1.0.0", tr.Packages[0].DependsOn[0].Version)
}
