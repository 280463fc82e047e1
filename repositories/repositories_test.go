package repositories

import (
	"context"
	"testing"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/entities"
	"telemetry-server/testutil"
)

func TestSubscriptionConsume(t *testing.T) {
	ctx := context.Background()
	database := testutil.DB(t)
	user := testutil.SeedUser(t, database, "owner@example.com", entities.RoleCustomer)
	testutil.SeedSubscription(t, database, user.ID, 100, 10)
	repo := NewSubscriptionPgRepository(database)

	consumed := func() int64 {
		t.Helper()
		sub, err := repo.GetByUserID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetByUserID: %v", err)
		}
		return sub.SpaceConsumed
	}

	steps := []struct {
		name     string
		delta    int64
		wantKind apperr.Kind
		want     int64
	}{
		{"charge", 60, "", 60},
		{"fill to the limit", 40, "", 100},
		{"overflow is rejected", 1, apperr.KindQuotaExceeded, 100},
		{"refund", -30, "", 70},
		{"refund never goes negative", -500, "", 0},
		{"zero is a no-op", 0, "", 0},
	}
	for _, step := range steps {
		err := repo.Consume(ctx, user.ID, step.delta)
		switch {
		case step.wantKind == "" && err != nil:
			t.Fatalf("%s: unexpected error %v", step.name, err)
		case step.wantKind != "" && !apperr.Is(err, step.wantKind):
			t.Fatalf("%s: want=%s got=%v", step.name, step.wantKind, err)
		}
		if got := consumed(); got != step.want {
			t.Fatalf("%s: space_consumed want=%d got=%d", step.name, step.want, got)
		}
	}

	if err := repo.Consume(ctx, "nobody", -5); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("refund for unknown user: want not_found got=%v", err)
	}
}

func TestSessionCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	database := testutil.DB(t)
	user := testutil.SeedUser(t, database, "owner@example.com", entities.RoleCustomer)
	testutil.SeedDevice(t, database, "RASPBERRY_PI_001", user.ID, "")
	repo := NewSessionPgRepository(database)

	first := &entities.DataSession{ID: "run-1", DeviceID: "RASPBERRY_PI_001", StartTime: time.Now().UTC(), IsActive: true}
	created, err := repo.CreateIfAbsent(ctx, first)
	if err != nil || !created {
		t.Fatalf("first CreateIfAbsent: created=%v err=%v", created, err)
	}
	again := &entities.DataSession{ID: "run-1", DeviceID: "RASPBERRY_PI_001", Description: "other", IsActive: true}
	created, err = repo.CreateIfAbsent(ctx, again)
	if err != nil || created {
		t.Fatalf("second CreateIfAbsent: created=%v err=%v", created, err)
	}

	stored, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Description != "" {
		t.Fatalf("existing session was overwritten: %+v", stored)
	}

	if err := repo.Close(ctx, "run-1", time.Now().UTC()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := repo.Close(ctx, "missing", time.Now().UTC()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Close missing: want not_found got=%v", err)
	}
}

func TestBatchIncrementCount(t *testing.T) {
	ctx := context.Background()
	database := testutil.DB(t)
	user := testutil.SeedUser(t, database, "owner@example.com", entities.RoleCustomer)
	testutil.SeedDevice(t, database, "RASPBERRY_PI_001", user.ID, "")
	sessions := NewSessionPgRepository(database)
	if _, err := sessions.CreateIfAbsent(ctx, &entities.DataSession{ID: "run-1", DeviceID: "RASPBERRY_PI_001", IsActive: true}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	repo := NewBatchPgRepository(database)
	if _, err := repo.CreateIfAbsent(ctx, &entities.DataBatch{ID: "b1", SessionID: "run-1", DeviceID: "RASPBERRY_PI_001"}); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := repo.IncrementCount(ctx, "b1", 2); err != nil {
			t.Fatalf("IncrementCount: %v", err)
		}
	}
	batch, err := repo.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if batch.DataCount != 10 {
		t.Fatalf("DataCount: want=10 got=%d", batch.DataCount)
	}
	if err := repo.IncrementCount(ctx, "missing", 1); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("IncrementCount missing: want not_found got=%v", err)
	}
}
