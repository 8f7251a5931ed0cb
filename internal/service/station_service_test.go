package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationTicketsAreCappedNewestFirst(t *testing.T) {
	rdb, _ := newRedis(t)
	svc := NewStationService(rdb, time.Second)
	ctx := context.Background()

	for i := 0; i < stationListCap+5; i++ {
		require.NoError(t, svc.PushTicket(ctx, entity.StationTicket{
			OrderID: fmt.Sprintf("o%d", i), Station: entity.ItemTypeKitchen,
			Lines: []entity.TicketLine{{ItemID: "A", Name: "Fried rice", Quantity: 1}},
		}))
	}

	tickets, err := svc.ListTickets(ctx, entity.ItemTypeKitchen, 0)
	require.NoError(t, err)
	assert.Len(t, tickets, stationListCap)
	assert.Equal(t, fmt.Sprintf("o%d", stationListCap+4), tickets[0].OrderID)

	latest, err := svc.ListTickets(ctx, entity.ItemTypeKitchen, 2)
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	bar, err := svc.ListTickets(ctx, entity.ItemTypeBar, 10)
	require.NoError(t, err)
	assert.Empty(t, bar)
}

func TestParseStation(t *testing.T) {
	s, err := ParseStation("bar")
	require.NoError(t, err)
	assert.Equal(t, entity.ItemTypeBar, s)

	s, err = ParseStation("KITCHEN")
	require.NoError(t, err)
	assert.Equal(t, entity.ItemTypeKitchen, s)

	_, err = ParseStation("patio")
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestStationCallsGiveUpOnStalledRedis(t *testing.T) {
	svc := NewStationService(stalledRedis(t), 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	err := svc.PushTicket(ctx, entity.StationTicket{OrderID: "o1", Station: entity.ItemTypeBar})
	assert.True(t, common.IsTransient(err))

	_, err = svc.ListTickets(ctx, entity.ItemTypeBar, 5)
	assert.True(t, common.IsTransient(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
