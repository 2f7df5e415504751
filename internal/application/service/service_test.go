package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkhub-api/internal/application/service"
	"linkhub-api/internal/domain/entity"
	"linkhub-api/internal/domain/repository"
	"linkhub-api/pkg/metrics"
)

const (
	tenantA = "11111111-1111-4111-8111-111111111111"
	tenantB = "22222222-2222-4222-8222-222222222222"
)

func TestActivityServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTransactor{}
	svc := service.NewActivityService(tx, newMemActivities())

	created, err := svc.Create(ctx, tenantA, service.CreateActivityInput{
		ActorID:  "user-1",
		Action:   "login",
		Metadata: entity.JSONMap{"ip": "10.0.0.1"},
	})
	require.NoError(t, err)
	assert.Equal(t, tenantA, created.TenantID)

	got, err := svc.Get(ctx, tenantA, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "login", got.Action)

	// 其他租户不可见
	_, err = svc.Get(ctx, tenantB, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	page, err := svc.List(ctx, tenantB, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	assert.ErrorIs(t, svc.Delete(ctx, tenantB, created.ID), repository.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, tenantA, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, tenantA, created.ID), repository.ErrNotFound)
}

func TestActivityServiceValidatesBeforeOpeningScope(t *testing.T) {
	tx := &fakeTransactor{}
	svc := service.NewActivityService(tx, newMemActivities())

	_, err := svc.Create(context.Background(), tenantA, service.CreateActivityInput{ActorID: " "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	var inErr *service.InputError
	require.ErrorAs(t, err, &inErr)
	assert.Equal(t, []string{"action", "actor_id"}, inErr.Fields)
	assert.Empty(t, tx.scopes)
}

func TestServicesPropagateGuardErrors(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTransactor{}
	activities := service.NewActivityService(tx, newMemActivities())

	_, err := activities.Get(ctx, "not-a-tenant", "a")
	assert.ErrorIs(t, err, repository.ErrInvalidTenant)

	tx.openErr = repository.ErrPoolExhausted
	_, err = activities.List(ctx, tenantA, repository.NewPagination(1, 20))
	assert.ErrorIs(t, err, repository.ErrPoolExhausted)
}

func TestShortlinkServiceCreateRecordsActivity(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTransactor{}
	activities := newMemActivities()
	svc := service.NewShortlinkService(tx, newMemShortlinks(), activities)

	link, err := svc.Create(ctx, tenantA, service.CreateShortlinkInput{
		Slug:      "docs",
		TargetURL: "https://example.com/docs",
		CreatedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, tenantA, link.TenantID)
	assert.Equal(t, []string{tenantA}, tx.scopes, "link and activity share one scope")

	recorded := activities.byAction(service.ActionShortlinkCreated)
	require.Len(t, recorded, 1)
	assert.Equal(t, link.ID, recorded[0].TargetID)
	assert.Equal(t, tenantA, recorded[0].TenantID)

	_, err = svc.Create(ctx, tenantA, service.CreateShortlinkInput{Slug: "docs", TargetURL: "https://example.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// slug 只在租户内唯一
	_, err = svc.Create(ctx, tenantB, service.CreateShortlinkInput{Slug: "docs", TargetURL: "https://example.com"})
	assert.NoError(t, err)
}

func TestShortlinkServiceCreateFailsWhenActivityFails(t *testing.T) {
	tx := &fakeTransactor{}
	activities := newMemActivities()
	activities.failErr = errors.New("insert activity failed")
	svc := service.NewShortlinkService(tx, newMemShortlinks(), activities)

	_, err := svc.Create(context.Background(), tenantA, service.CreateShortlinkInput{Slug: "docs", TargetURL: "https://example.com"})
	assert.ErrorIs(t, err, activities.failErr)
	assert.Equal(t, 1, tx.rollbacks)
}

func TestShortlinkServiceResolve(t *testing.T) {
	ctx := context.Background()
	svc := service.NewShortlinkService(&fakeTransactor{}, newMemShortlinks(), nil)

	_, err := svc.Create(ctx, tenantA, service.CreateShortlinkInput{Slug: "docs", TargetURL: "https://example.com/docs"})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.ShortlinkClicksTotal)
	link, err := svc.Resolve(ctx, tenantA, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.ClickCount)
	link, err = svc.Resolve(ctx, tenantA, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), link.ClickCount)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.ShortlinkClicksTotal))

	_, err = svc.Resolve(ctx, tenantB, "docs")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestShortlinkServiceResolveExpired(t *testing.T) {
	ctx := context.Background()
	links := newMemShortlinks()
	svc := service.NewShortlinkService(&fakeTransactor{}, links, nil)

	past := time.Now().Add(-time.Minute)
	created, err := svc.Create(ctx, tenantA, service.CreateShortlinkInput{Slug: "old", TargetURL: "https://example.com", ExpiresAt: &past})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, tenantA, "old")
	assert.ErrorIs(t, err, service.ErrShortlinkExpired)

	got, err := svc.Get(ctx, tenantA, created.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ClickCount)
}

func TestShortlinkServiceDelete(t *testing.T) {
	ctx := context.Background()
	activities := newMemActivities()
	svc := service.NewShortlinkService(&fakeTransactor{}, newMemShortlinks(), activities)

	link, err := svc.Create(ctx, tenantA, service.CreateShortlinkInput{Slug: "docs", TargetURL: "https://example.com"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, tenantB, "user-2", link.ID), repository.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, tenantA, "user-1", link.ID))

	deleted := activities.byAction(service.ActionShortlinkDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, "user-1", deleted[0].ActorID)

	page, err := svc.List(ctx, tenantA, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestPluginEventService(t *testing.T) {
	ctx := context.Background()
	svc := service.NewPluginEventService(&fakeTransactor{}, &memPluginEvents{})

	before := testutil.ToFloat64(metrics.PluginEventsTotal.WithLabelValues("github"))
	occurred := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	event, err := svc.Record(ctx, tenantA, service.RecordPluginEventInput{
		Plugin:     "github",
		EventType:  "push",
		Payload:    entity.JSONMap{"ref": "main"},
		OccurredAt: occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, occurred, event.OccurredAt)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PluginEventsTotal.WithLabelValues("github")))

	_, err = svc.Record(ctx, tenantA, service.RecordPluginEventInput{Plugin: "github", EventType: "issue"})
	require.NoError(t, err)
	_, err = svc.Record(ctx, tenantB, service.RecordPluginEventInput{Plugin: "github", EventType: "push"})
	require.NoError(t, err)

	page, err := svc.List(ctx, tenantA, &repository.PluginEventFilter{EventType: "push"}, repository.NewPagination(1, 20))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, event.ID, page.Items[0].ID)

	got, err := svc.Get(ctx, tenantA, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", got.Payload["ref"])

	require.NoError(t, svc.Delete(ctx, tenantA, event.ID))
	_, err = svc.Get(ctx, tenantA, event.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Record(ctx, tenantA, service.RecordPluginEventInput{Plugin: "github"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

type recordingPublisher struct {
	events  []*entity.PluginEvent
	inScope bool
	err     error
}

func (p *recordingPublisher) PublishPluginEvent(ctx context.Context, event *entity.PluginEvent) (string, error) {
	_, p.inScope = repository.TenantFromContext(ctx)
	p.events = append(p.events, event)
	return "1-0", p.err
}

func TestPluginEventServicePublishesAfterCommit(t *testing.T) {
	ctx := context.Background()
	tx := &fakeTransactor{}
	pub := &recordingPublisher{}
	svc := service.NewPluginEventService(tx, &memPluginEvents{}).WithPublisher(pub)

	event, err := svc.Record(ctx, tenantA, service.RecordPluginEventInput{Plugin: "stripe", EventType: "charge"})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.ID, pub.events[0].ID)
	assert.False(t, pub.inScope, "publish must run after the tenant scope closed")

	// 发布失败不影响已提交的记录
	pub.err = errors.New("stream unavailable")
	_, err = svc.Record(ctx, tenantA, service.RecordPluginEventInput{Plugin: "stripe", EventType: "refund"})
	require.NoError(t, err)
	assert.Len(t, pub.events, 2)

	// 作用域失败时不发布
	tx.openErr = repository.ErrPoolExhausted
	_, err = svc.Record(ctx, tenantA, service.RecordPluginEventInput{Plugin: "stripe", EventType: "charge"})
	assert.ErrorIs(t, err, repository.ErrPoolExhausted)
	assert.Len(t, pub.events, 2)
}
