package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/roamledger/roamledger/types"
)

type mockTripStore struct {
	mock.Mock
}

func (m *mockTripStore) Create(ctx context.Context, trip *types.Trip) (int64, error) {
	args := m.Called(ctx, trip)
	if id := args.Get(0).(int64); id != 0 {
		trip.ID = id
	}
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTripStore) GetByID(ctx context.Context, id int64) (*types.Trip, error) {
	args := m.Called(ctx, id)
	if trip := args.Get(0); trip != nil {
		return trip.(*types.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTripStore) Update(ctx context.Context, trip *types.Trip) (*types.Trip, error) {
	args := m.Called(ctx, trip)
	if updated := args.Get(0); updated != nil {
		return updated.(*types.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTripStore) Delete(ctx context.Context, id int64, identityValue string) error {
	return m.Called(ctx, id, identityValue).Error(0)
}

func (m *mockTripStore) ListByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error) {
	args := m.Called(ctx, identityValue)
	if trips := args.Get(0); trips != nil {
		return trips.([]types.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExpenseStore struct {
	mock.Mock
}

func (m *mockExpenseStore) Create(ctx context.Context, expense *types.Expense) (int64, error) {
	args := m.Called(ctx, expense)
	if id := args.Get(0).(int64); id != 0 {
		expense.ID = id
	}
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockExpenseStore) GetByID(ctx context.Context, id int64) (*types.Expense, error) {
	args := m.Called(ctx, id)
	if expense := args.Get(0); expense != nil {
		return expense.(*types.Expense), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExpenseStore) Update(ctx context.Context, expense *types.Expense, identityValue string) (*types.Expense, error) {
	args := m.Called(ctx, expense, identityValue)
	if updated := args.Get(0); updated != nil {
		return updated.(*types.Expense), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExpenseStore) Delete(ctx context.Context, id int64, identityValue string) error {
	return m.Called(ctx, id, identityValue).Error(0)
}

func (m *mockExpenseStore) ListByTrip(ctx context.Context, tripID int64) ([]types.Expense, error) {
	args := m.Called(ctx, tripID)
	if expenses := args.Get(0); expenses != nil {
		return expenses.([]types.Expense), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) Archive(ctx context.Context, expenseID int64, dataURI string) error {
	return m.Called(ctx, expenseID, dataURI).Error(0)
}

func (m *mockArchiver) Remove(ctx context.Context, expenseID int64) error {
	return m.Called(ctx, expenseID).Error(0)
}
