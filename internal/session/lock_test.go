package session

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestMockLocker_AcquireAndRelease(t *testing.T) {
	m := NewMockLocker()
	ctx := context.Background()

	if err := m.Acquire(ctx, "sweep", "owner1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := m.Release(ctx, "sweep", "owner1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := m.Acquire(ctx, "sweep", "owner2"); err != nil {
		t.Errorf("Expected lease to be free after release: %v", err)
	}
}

func TestMockLocker_DoubleAcquire_SameOwner(t *testing.T) {
	m := NewMockLocker()
	ctx := context.Background()

	if err := m.Acquire(ctx, "sweep", "owner1"); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if err := m.Acquire(ctx, "sweep", "owner1"); err != nil {
		t.Errorf("Same owner should be able to re-acquire: %v", err)
	}
}

func TestMockLocker_DoubleAcquire_DifferentOwner(t *testing.T) {
	m := NewMockLocker()
	ctx := context.Background()

	if err := m.Acquire(ctx, "sweep", "owner1"); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if err := m.Acquire(ctx, "sweep", "owner2"); !errors.Is(err, ErrLeaseHeld) {
		t.Errorf("Expected ErrLeaseHeld, got %v", err)
	}
}

type fakeLeaseAPI struct {
	putErr    error
	deleteErr error
	puts      []*dynamodb.PutItemInput
}

func (f *fakeLeaseAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeLeaseAPI) DeleteItem(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func TestLockManager_ConditionalCheckFailureMeansHeld(t *testing.T) {
	api := &fakeLeaseAPI{putErr: &types.ConditionalCheckFailedException{}}
	m := NewLockManager(api, "Locks")

	err := m.Acquire(context.Background(), "sweep", "owner1")
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("Expected ErrLeaseHeld, got %v", err)
	}
	if len(api.puts) != 1 || *api.puts[0].ConditionExpression == "" {
		t.Fatal("Expected a conditional PutItem")
	}
	if _, ok := api.puts[0].Item["lock_name"]; !ok {
		t.Error("Expected lease item to carry lock_name key")
	}
}

func TestLockManager_ReleaseIgnoresForeignLease(t *testing.T) {
	m := NewLockManager(&fakeLeaseAPI{deleteErr: &types.ConditionalCheckFailedException{}}, "Locks")
	if err := m.Release(context.Background(), "sweep", "owner1"); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	m = NewLockManager(&fakeLeaseAPI{deleteErr: errors.New("throttled")}, "Locks")
	if err := m.Release(context.Background(), "sweep", "owner1"); err == nil {
		t.Error("Expected other errors to propagate")
	}
}
