package usecases

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/entities"
	"telemetry-server/metrics"
	"telemetry-server/testutil"
)

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.sessions.Resolve(ctx, f.device.ID, "session_2024_01_01_001", "bench run")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !created || !first.IsActive || first.Description != "bench run" {
		t.Fatalf("first Resolve: want created active session, got created=%v %+v", created, first)
	}

	second, created, err := f.sessions.Resolve(ctx, f.device.ID, "session_2024_01_01_001", "ignored")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if created {
		t.Fatalf("second Resolve: want created=false")
	}
	if second.ID != first.ID || second.Description != "bench run" {
		t.Fatalf("second Resolve returned a different session: %+v", second)
	}
	if n := f.countRows(t, &entities.DataSession{}, ""); n != 1 {
		t.Fatalf("sessions: want=1 got=%d", n)
	}
}

func TestResolveConcurrentSameToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := f.sessions.Resolve(ctx, f.device.ID, "shared-token", "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if c {
				created++
			}
		}()
	}
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("Resolve errors: %v", errs)
	}
	if created != 1 {
		t.Fatalf("created: want=1 got=%d", created)
	}
	if n := f.countRows(t, &entities.DataSession{}, "id = ?", "shared-token"); n != 1 {
		t.Fatalf("sessions: want=1 got=%d", n)
	}
}

func TestResolveWithoutTokenAlwaysCreates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pattern := regexp.MustCompile(`^session_\d{8}_\d{6}_[0-9a-f]{8}$`)

	a, createdA, err := f.sessions.Resolve(ctx, f.device.ID, "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, createdB, err := f.sessions.Resolve(ctx, f.device.ID, "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !createdA || !createdB || a.ID == b.ID {
		t.Fatalf("want two new sessions, got %q (%v) and %q (%v)", a.ID, createdA, b.ID, createdB)
	}
	if !pattern.MatchString(a.ID) {
		t.Fatalf("generated token %q does not match %s", a.ID, pattern)
	}
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.SeedDevice(t, f.db, "other-device", f.owner.ID, "")
	if _, _, err := f.sessions.Resolve(ctx, other.ID, "taken", ""); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	cases := []struct {
		name     string
		deviceID string
		token    string
		want     apperr.Kind
	}{
		{"unknown device", "ghost", "s1", apperr.KindNotFound},
		{"token with spaces", f.device.ID, "bad token", apperr.KindInvalidArgument},
		{"token too long", f.device.ID, strings.Repeat("a", MaxTokenLength+1), apperr.KindInvalidArgument},
		{"token owned by another device", f.device.ID, "taken", apperr.KindInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.sessions.Resolve(ctx, tc.deviceID, tc.token, "")
			if got := apperr.KindOf(err); err == nil || got != tc.want {
				t.Fatalf("want kind=%s got err=%v", tc.want, err)
			}
		})
	}
}

func TestResolveBatchScopedToSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1, _, _ := f.sessions.Resolve(ctx, f.device.ID, "s1", "")
	s2, _, _ := f.sessions.Resolve(ctx, f.device.ID, "s2", "")

	b, err := f.sessions.ResolveBatch(ctx, s1, "batch-1")
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if b.DataCount != 0 || b.SessionID != s1.ID {
		t.Fatalf("new batch: %+v", b)
	}
	again, err := f.sessions.ResolveBatch(ctx, s1, "batch-1")
	if err != nil || again.ID != b.ID {
		t.Fatalf("ResolveBatch again: %v %+v", err, again)
	}
	if _, err := f.sessions.ResolveBatch(ctx, s2, "batch-1"); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("batch of another session: want InvalidArgument got %v", err)
	}
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _, _ := f.sessions.Resolve(ctx, f.device.ID, "closing", "")
	_, err := f.ingest.Ingest(ctx, IngestRequest{
		DeviceID:  f.device.ID,
		SessionID: s.ID,
		Readings: []ReadingInput{
			{SensorType: "temperature", Value: floatPtr(21)},
			{SensorType: "humidity", Value: floatPtr(40)},
		},
	}, metrics.SourceHTTP)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	closed, err := f.sessions.Close(ctx, f.device.ID, s.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.IsActive || closed.EndTime == nil {
		t.Fatalf("Close: want inactive with end time, got %+v", closed)
	}
	if closed.ReadingCount != 2 {
		t.Fatalf("ReadingCount: want=2 got=%d", closed.ReadingCount)
	}
	end := *closed.EndTime

	f.sessions.now = func() time.Time { return end.Add(time.Hour) }
	again, err := f.sessions.Close(ctx, f.device.ID, s.ID)
	if err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !again.EndTime.Equal(end) {
		t.Fatalf("second Close moved end time: want=%v got=%v", end, *again.EndTime)
	}

	if _, err := f.sessions.Close(ctx, "someone-else", s.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("Close by other device: want Forbidden got %v", err)
	}
	if _, err := f.sessions.Close(ctx, f.device.ID, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Close missing: want NotFound got %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	for _, ok := range []string{"a", "session_20240101_120000_abcd1234", "x.y:z-1"} {
		if err := ValidateToken("session_id", ok); err != nil {
			t.Fatalf("ValidateToken(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a/b", "é", "with space"} {
		if err := ValidateToken("session_id", bad); err == nil {
			t.Fatalf("ValidateToken(%q): want error", bad)
		}
	}
}
