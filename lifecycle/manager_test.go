package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	name    string
	deps    []string
	starts  *[]string
	failOn  bool
	healthy bool
}

func (f *fakeComponent) Name() string           { return f.name }
func (f *fakeComponent) Dependencies() []string { return f.deps }
func (f *fakeComponent) Start(ctx context.Context) error {
	*f.starts = append(*f.starts, f.name)
	if f.failOn {
		return assertErr
	}
	return nil
}
func (f *fakeComponent) Stop(ctx context.Context) error { return nil }
func (f *fakeComponent) HealthCheck(ctx context.Context) error {
	if !f.healthy {
		return assertErr
	}
	return nil
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "simulated failure" }

func TestStartAllRespectsDependencyOrder(t *testing.T) {
	var starts []string
	m := New(nil)
	m.Register(&fakeComponent{name: "db", starts: &starts, healthy: true})
	m.Register(&fakeComponent{name: "cache", deps: []string{"db"}, starts: &starts, healthy: true})
	m.Register(&fakeComponent{name: "api", deps: []string{"cache", "db"}, starts: &starts, healthy: true})

	require.NoError(t, m.StartAll(context.Background()))

	posDB := indexOf(starts, "db")
	posCache := indexOf(starts, "cache")
	posAPI := indexOf(starts, "api")
	assert.True(t, posDB < posCache)
	assert.True(t, posCache < posAPI)

	status, ok := m.Status("api")
	assert.True(t, ok)
	assert.Equal(t, Ready, status)
}

func TestStartAllSkipsCyclicComponentWithoutCrashing(t *testing.T) {
	var starts []string
	m := New(nil)
	m.Register(&fakeComponent{name: "a", deps: []string{"b"}, starts: &starts, healthy: true})
	m.Register(&fakeComponent{name: "b", deps: []string{"a"}, starts: &starts, healthy: true})
	m.Register(&fakeComponent{name: "c", starts: &starts, healthy: true})

	err := m.StartAll(context.Background())
	assert.NoError(t, err)

	statusA, _ := m.Status("a")
	statusB, _ := m.Status("b")
	statusC, _ := m.Status("c")
	assert.Equal(t, ErrorStatus, statusA)
	assert.Equal(t, ErrorStatus, statusB)
	assert.Equal(t, Ready, statusC)
}

func TestHealthCheckAllRecordsFailures(t *testing.T) {
	var starts []string
	m := New(nil)
	m.Register(&fakeComponent{name: "flaky", starts: &starts, healthy: false})
	require.NoError(t, m.StartAll(context.Background()))

	results := m.HealthCheckAll(context.Background())
	h, ok := results["flaky"]
	require.True(t, ok)
	assert.Equal(t, 1, h.ErrorCount)
}

func TestEventLogRetainsOnlyMostRecentWithinCapacity(t *testing.T) {
	log := NewEventLog(3)
	log.Append(EventInit, "a", "1")
	log.Append(EventInit, "b", "2")
	log.Append(EventInit, "c", "3")
	log.Append(EventInit, "d", "4")

	recent := log.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Component)
	assert.Equal(t, "c", recent[1].Component)
	assert.Equal(t, "b", recent[2].Component)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
