package service

import (
	"context"
	"testing"

	"github.com/stemsi/sanmon-backend/internal/model"
	"github.com/stemsi/sanmon-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterClass(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newClassService(store)

	c, err := svc.RegisterClass(ctx, model.ClassRoster{NameClass: "5а", ManClass: "Иванова", CountClass: 25})
	require.NoError(t, err)
	assert.Equal(t, 0, c.CountIll)
	assert.Equal(t, 0, c.ProcIll)
	assert.False(t, c.Closed)
	assert.Equal(t, date(2026, 10, 14), c.Date)

	stored, err := store.GetClass(ctx, "5а")
	require.NoError(t, err)
	assert.Equal(t, *c, *stored)

	_, err = svc.RegisterClass(ctx, model.ClassRoster{NameClass: "5а", ManClass: "Петров", CountClass: 30})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err = store.GetClass(ctx, "5а")
	require.NoError(t, err)
	assert.Equal(t, "Иванова", stored.ManClass, "conflicting registration must not overwrite")
}

func TestRegisterClass_Validation(t *testing.T) {
	svc := newClassService(repository.NewMemoryStore())

	_, err := svc.RegisterClass(context.Background(), model.ClassRoster{NameClass: " ", CountClass: 0})
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name_class")
	assert.Contains(t, ve.Fields, "count_class")
}

func TestApplyReport_Scenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newClassService(store)

	_, err := svc.RegisterClass(ctx, model.ClassRoster{NameClass: "5а", ManClass: "Иванова", CountClass: 25})
	require.NoError(t, err)

	c, err := svc.ApplyReport(ctx, model.ClassReport{NameClass: "5а", CountIll: 3})
	require.NoError(t, err)
	assert.Equal(t, 12, c.ProcIll)
	assert.False(t, c.Closed)

	c, err = svc.ApplyReport(ctx, model.ClassReport{NameClass: "5а", CountIll: 6})
	require.NoError(t, err)
	assert.Equal(t, 24, c.ProcIll)
	require.True(t, c.Closed)
	assert.Equal(t, date(2026, 10, 15), *c.DateClosed)
	assert.Equal(t, date(2026, 10, 21), *c.DateOpen)

	c, err = svc.ApplyReport(ctx, model.ClassReport{NameClass: "5а", CountIll: 1, Closed: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, c.Closed)
	assert.Nil(t, c.DateOpen)
	assert.Nil(t, c.DateClosed)
	assert.Equal(t, 4, c.ProcIll)

	stored, err := store.GetClass(ctx, "5а")
	require.NoError(t, err)
	assert.Equal(t, *c, *stored)
	assert.Equal(t, "Иванова", stored.ManClass)
}

func TestApplyReport_Errors(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newClassService(store)

	_, err := svc.ApplyReport(ctx, model.ClassReport{NameClass: "11б", CountIll: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ApplyReport(ctx, model.ClassReport{NameClass: "11б", CountIll: -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ApplyReport(ctx, model.ClassReport{NameClass: "11б", CountIll: 1, ReopenAfterDays: intPtr(0)})
	assert.ErrorIs(t, err, ErrValidation)

	broken := newClassService(brokenStore{repository.NewMemoryStore()})
	_, err = broken.ApplyReport(ctx, model.ClassReport{NameClass: "11б", CountIll: 1})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, errBoom)
}

func TestApplyReport_MoreIllThanRosterIsAccepted(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedClass(store, model.ClassRecord{NameClass: "3в", CountClass: 10, Date: date(2026, 10, 13)})

	c, err := newClassService(store).ApplyReport(ctx, model.ClassReport{NameClass: "3в", CountIll: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, c.CountIll)
	assert.Equal(t, 120, c.ProcIll)
	assert.True(t, c.Closed)
}

func TestUpdateRoster(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newClassService(store)
	seedClass(store, model.ClassRecord{NameClass: "6а", ManClass: "Old", CountClass: 20, CountIll: 5, ProcIll: 25})

	c, err := svc.UpdateRoster(ctx, model.ClassRoster{NameClass: "6а", ManClass: "New", CountClass: 25})
	require.NoError(t, err)
	assert.Equal(t, "New", c.ManClass)
	assert.Equal(t, 20, c.ProcIll)
	assert.Equal(t, 5, c.CountIll)

	_, err = svc.UpdateRoster(ctx, model.ClassRoster{NameClass: "6б", CountClass: 25})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetClosure(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newClassService(store)
	seedClass(store, model.ClassRecord{NameClass: "8а", CountClass: 20})

	from, until := date(2026, 10, 15), date(2026, 10, 20)
	c, err := svc.SetClosure(ctx, model.ClassClosure{NameClass: "8а", Closed: true, DateClosed: &from, DateOpen: &until})
	require.NoError(t, err)
	assert.True(t, c.Closed)
	assert.Equal(t, from, *c.DateClosed)
	assert.Equal(t, until, *c.DateOpen)

	_, err = svc.SetClosure(ctx, model.ClassClosure{NameClass: "8а", Closed: true, DateClosed: &until, DateOpen: &from})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SetClosure(ctx, model.ClassClosure{NameClass: "8а", Closed: true})
	assert.ErrorIs(t, err, ErrValidation)

	c, err = svc.SetClosure(ctx, model.ClassClosure{NameClass: "8а", Closed: false})
	require.NoError(t, err)
	assert.True(t, c.ClosureConsistent())
	assert.False(t, c.Closed)

	_, err = svc.SetClosure(ctx, model.ClassClosure{NameClass: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListClassesAndOverview(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newClassService(store)
	seedClass(store, model.ClassRecord{NameClass: "10а", CountClass: 30, CountIll: 3})
	seedClass(store, model.ClassRecord{NameClass: "5б", CountClass: 25, CountIll: 2})
	seedClass(store, model.ClassRecord{NameClass: "5а", CountClass: 25, CountIll: 0})

	classes, err := svc.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, []string{"5а", "5б", "10а"}, []string{classes[0].NameClass, classes[1].NameClass, classes[2].NameClass})

	o, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, o.CountAllIll)
	assert.Equal(t, 80, o.CountAll)
	assert.Equal(t, 6, o.ProcAll)
	assert.False(t, o.ReportSent)

	_, err = store.UpsertSummaryCounts(ctx, testNow, model.SummaryCounts{})
	require.NoError(t, err)
	_, err = store.MarkSummarySent(ctx, testNow)
	require.NoError(t, err)

	o, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.True(t, o.ReportSent)

	_, err = newClassService(brokenStore{repository.NewMemoryStore()}).Overview(ctx)
	assert.ErrorIs(t, err, ErrStorage)
}
