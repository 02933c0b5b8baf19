package crossplane

import (
	"context"
	"fmt"
)

// MockClient serves canned claims and traces so the dashboard runs without a
// cluster. The fixture data mirrors a small platform-ref style setup: two AWS
// database claims and a bucket, one of them degraded.
type MockClient struct {
	claims   []Claim
	traces   map[string]*ResourceTrace
	packages []Package
}

func NewMockClient() *MockClient {
	m := &MockClient{traces: map[string]*ResourceTrace{}}

	ordersClaim := mockObject("database.example.org/v1alpha1", "PostgreSQLInstance", "orders-db", "orders", "True", "True")
	ordersClaim["spec"].(map[string]any)["resourceRef"] = map[string]any{
		"apiVersion": "database.example.org/v1alpha1",
		"kind":       "XPostgreSQLInstance",
		"name":       "orders-db-x7f2p",
	}
	ordersClaim["spec"].(map[string]any)["compositionRef"] = map[string]any{"name": "xpostgresqlinstances.aws.example.org"}

	paymentsClaim := mockObject("cache.example.org/v1alpha1", "RedisCluster", "payments-cache", "payments", "False", "True")
	paymentsClaim["spec"].(map[string]any)["resourceRef"] = map[string]any{
		"apiVersion": "cache.example.org/v1alpha1",
		"kind":       "XRedisCluster",
		"name":       "payments-cache-k9d31",
	}
	paymentsClaim["spec"].(map[string]any)["compositionRef"] = map[string]any{"name": "xredisclusters.aws.example.org"}

	webClaim := mockObject("storage.example.org/v1alpha1", "ObjectStorage", "web-assets", "web", "True", "True")
	webClaim["spec"].(map[string]any)["resourceRef"] = map[string]any{
		"apiVersion": "storage.example.org/v1alpha1",
		"kind":       "XObjectStorage",
		"name":       "web-assets-b2xq8",
	}

	m.claims = []Claim{
		summarizeClaim(ordersClaim),
		summarizeClaim(paymentsClaim),
		summarizeClaim(webClaim),
	}

	m.packages = []Package{
		{
			Type: "provider", Name: "provider-aws-rds",
			DependsOn: []PackageDependency{{Package: "xpkg.upbound.io/upbound/provider-family-aws", Version: ">=v1.0.0"}},
		},
		{Type: "provider", Name: "provider-aws-s3",
			DependsOn: []PackageDependency{{Package: "xpkg.upbound.io/upbound/provider-family-aws", Version: ">=v1.0.0"}},
		},
		{Type: "function", Name: "function-patch-and-transform"},
		{Type: "configuration", Name: "platform-ref-aws",
			DependsOn: []PackageDependency{
				{Package: "xpkg.upbound.io/upbound/provider-aws-rds", Version: ">=v1.1.0"},
				{Package: "xpkg.upbound.io/crossplane-contrib/function-patch-and-transform", Version: ">=v0.5.0"},
			},
		},
	}

	m.traces["orders/orders-db"] = m.ordersTrace(ordersClaim)
	m.traces["payments/payments-cache"] = m.paymentsTrace(paymentsClaim)
	m.traces["web/web-assets"] = m.webTrace(webClaim)
	return m
}

func (m *MockClient) ListClaims(ctx context.Context) ([]Claim, error) {
	_ = ctx
	out := make([]Claim, len(m.claims))
	copy(out, m.claims)
	return out, nil
}

func (m *MockClient) Trace(ctx context.Context, claim Claim) (*ResourceTrace, error) {
	_ = ctx
	if tr, ok := m.traces[claim.Namespace+"/"+claim.Name]; ok {
		return tr, nil
	}
	return nil, fmt.Errorf("claim not found: %s/%s", claim.Namespace, claim.Name)
}

func (m *MockClient) ListPackages(ctx context.Context) ([]Package, error) {
	_ = ctx
	out := make([]Package, len(m.packages))
	copy(out, m.packages)
	return out, nil
}

func (m *MockClient) ordersTrace(claim map[string]any) *ResourceTrace {
	rds := &FetchedResource{
		Object: mockObject("rds.aws.upbound.io/v1beta1", "Instance", "orders-db-x7f2p-rds", "", "True", "True"),
		Events: []Event{
			{Type: "Normal", Reason: "CreatedExternalResource", Message: "Successfully requested creation of external resource", Timestamp: "2026-08-20T09:14:02Z", Count: 1},
		},
		ConnectionDetails: []ConnectionDetail{
			{Type: "Text", Name: "endpoint", Value: "orders-db.abc123.eu-west-1.rds.amazonaws.com"},
			{Type: "Text", Name: "password", Value: "••••••••", Sensitive: true},
		},
		Propagated: PropagatedStatus{Ready: true, Synced: true},
	}
	sg := &FetchedResource{
		Object:     mockObject("ec2.aws.upbound.io/v1beta1", "SecurityGroup", "orders-db-x7f2p-sg", "", "True", "True"),
		Propagated: PropagatedStatus{Ready: true, Synced: true},
	}
	composite := &FetchedResource{
		Object: mockObject("database.example.org/v1alpha1", "XPostgreSQLInstance", "orders-db-x7f2p", "", "True", "True"),
		Events: []Event{
			{Type: "Normal", Reason: "ComposeResources", Message: "Successfully composed resources", Timestamp: "2026-08-20T09:13:55Z", Count: 4},
		},
		Dependencies: []*FetchedResource{rds, sg},
		Propagated:   PropagatedStatus{Ready: true, Synced: true},
	}
	return &ResourceTrace{
		Claim:     &FetchedResource{Object: claim, Propagated: PropagatedStatus{Ready: true, Synced: true}},
		Composite: composite,
		Composition: &CompositionInfo{
			Composition: mockObject("apiextensions.crossplane.io/v1", "Composition", "xpostgresqlinstances.aws.example.org", "", "", ""),
			Revisions: []map[string]any{
				mockObject("apiextensions.crossplane.io/v1", "CompositionRevision", "xpostgresqlinstances.aws.example.org-1a2b3c", "", "", ""),
			},
		},
		ManagedResources: composite.Dependencies,
		Packages:         m.packages,
	}
}

func (m *MockClient) paymentsTrace(claim map[string]any) *ResourceTrace {
	replication := &FetchedResource{
		Object: mockObject("elasticache.aws.upbound.io/v1beta1", "ReplicationGroup", "payments-cache-k9d31-rg", "", "False", "True"),
		Events: []Event{
			{Type: "Warning", Reason: "CannotCreateExternalResource", Message: "api error CacheClusterNotFound", Timestamp: "2026-08-23T17:40:11Z", Count: 12},
		},
		Propagated: PropagatedStatus{Ready: true, Synced: true},
	}
	subnetGroup := &FetchedResource{
		Object:     mockObject("elasticache.aws.upbound.io/v1beta1", "SubnetGroup", "payments-cache-k9d31-sng", "", "True", "True"),
		Propagated: PropagatedStatus{Ready: true, Synced: true},
	}
	composite := &FetchedResource{
		Object:       mockObject("cache.example.org/v1alpha1", "XRedisCluster", "payments-cache-k9d31", "", "False", "True"),
		Dependencies: []*FetchedResource{replication, subnetGroup},
		Propagated:   PropagatedStatus{Ready: false, Synced: true},
	}
	return &ResourceTrace{
		Claim:     &FetchedResource{Object: claim, Propagated: PropagatedStatus{Ready: true, Synced: true}},
		Composite: composite,
		Composition: &CompositionInfo{
			Composition: mockObject("apiextensions.crossplane.io/v1", "Composition", "xredisclusters.aws.example.org", "", "", ""),
		},
		ManagedResources: composite.Dependencies,
		Packages:         m.packages,
	}
}

func (m *MockClient) webTrace(claim map[string]any) *ResourceTrace {
	bucket := &FetchedResource{
		Object: mockObject("s3.aws.upbound.io/v1beta1", "Bucket", "web-assets-b2xq8", "", "True", "True"),
		ConnectionDetails: []ConnectionDetail{
			{Type: "Text", Name: "bucketName", Value: "web-assets-b2xq8"},
		},
		Propagated: PropagatedStatus{Ready: true, Synced: true},
	}
	composite := &FetchedResource{
		Object:       mockObject("storage.example.org/v1alpha1", "XObjectStorage", "web-assets-b2xq8", "", "True", "True"),
		Dependencies: []*FetchedResource{bucket},
		Propagated:   PropagatedStatus{Ready: true, Synced: true},
	}
	// No compositionRef on this one: the composition pane should show "—".
	return &ResourceTrace{
		Claim:            &FetchedResource{Object: claim, Propagated: PropagatedStatus{Ready: true, Synced: true}},
		Composite:        composite,
		ManagedResources: composite.Dependencies,
		Packages:         m.packages,
	}
}

// mockObject builds a minimal unstructured resource. Empty ready/synced skip
// the condition entirely.
func mockObject(apiVersion, kind, name, namespace, ready, synced string) map[string]any {
	meta := map[string]any{"name": name, "uid": "uid-" + name}
	if namespace != "" {
		meta["namespace"] = namespace
	}
	obj := map[string]any{
		"apiVersion": apiVersion,
		"kind":       kind,
		"metadata":   meta,
		"spec":       map[string]any{},
	}
	conds := []any{}
	if ready != "" {
		conds = append(conds, map[string]any{"type": "Ready", "status": ready})
	}
	if synced != "" {
		conds = append(conds, map[string]any{"type": "Synced", "status": synced})
	}
	if len(conds) > 0 {
		obj["status"] = map[string]any{"conditions": conds}
	}
	return obj
}
