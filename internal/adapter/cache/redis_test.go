package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/bookingcore/internal/adapter/cache"
	"github.com/srgjo27/bookingcore/internal/core/domain"
)

func TestAvailabilityCache_GetMiss(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, time.Minute)
	eventID := uuid.New()

	mockRedis.ExpectGet(fmt.Sprintf("seats:%s", eventID.String())).RedisNil()

	got, err := c.Get(context.Background(), eventID)

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestAvailabilityCache_GetHit(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, time.Minute)
	eventID := uuid.New()

	mockRedis.ExpectGet(cache.Key(eventID)).
		SetVal(fmt.Sprintf(`{"event_id":"%s","total":50,"remaining":12}`, eventID))

	got, err := c.Get(context.Background(), eventID)

	require.NoError(t, err)
	assert.Equal(t, domain.Availability{EventID: eventID, Total: 50, Remaining: 12}, *got)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestAvailabilityCache_GetError(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, time.Minute)
	eventID := uuid.New()

	mockRedis.ExpectGet(cache.Key(eventID)).SetErr(errors.New("connection reset"))

	_, err := c.Get(context.Background(), eventID)

	assert.Error(t, err)
}

func TestAvailabilityCache_Set(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, 30*time.Second)
	eventID := uuid.New()

	value := fmt.Sprintf(`{"event_id":"%s","total":10,"remaining":4}`, eventID)
	mockRedis.ExpectSet(cache.Key(eventID), value, 30*time.Second).SetVal("OK")

	err := c.Set(context.Background(), domain.Availability{EventID: eventID, Total: 10, Remaining: 4})

	require.NoError(t, err)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestAvailabilityCache_Invalidate(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewAvailabilityCache(db, time.Minute)
	eventID := uuid.New()

	cacheKey := fmt.Sprintf("seats:%s", eventID.String())
	mockRedis.ExpectDel(cacheKey).SetVal(1)

	require.NoError(t, c.Invalidate(context.Background(), eventID))

	if err := mockRedis.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
