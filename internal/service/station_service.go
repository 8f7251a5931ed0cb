package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"restaurant-order-service/internal/common"
	"restaurant-order-service/internal/entity"

	"github.com/go-redis/redis/v8"
)

const stationListCap = 200

// StationService keeps the most recent tickets for the bar and the kitchen.
type StationService struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewStationService(rdb *redis.Client, timeout time.Duration) *StationService {
	return &StationService{rdb: rdb, timeout: timeout}
}

func stationKey(station entity.ItemType) string {
	return fmt.Sprintf("station:%s", strings.ToLower(string(station)))
}

// ParseStation accepts "bar" or "kitchen" in any case.
func ParseStation(s string) (entity.ItemType, error) {
	switch station := entity.ItemType(strings.ToUpper(s)); station {
	case entity.ItemTypeBar, entity.ItemTypeKitchen:
		return station, nil
	}
	return "", common.ErrInvalidInput.WithDetails(map[string]string{"station": s})
}

// PushTicket adds ticket to the front of its station list and trims the list.
func (s *StationService) PushTicket(ctx context.Context, ticket entity.StationTicket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := stationKey(ticket.Station)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, stationListCap-1)
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error pushing ticket for order %s to %s", ticket.OrderID, key)
		return classify(err)
	}
	return nil
}

// ListTickets returns up to limit tickets, newest first.
func (s *StationService) ListTickets(ctx context.Context, station entity.ItemType, limit int) ([]entity.StationTicket, error) {
	if limit <= 0 || limit > stationListCap {
		limit = stationListCap
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.rdb.LRange(ctx, stationKey(station), 0, int64(limit-1)).Result()
	if err != nil {
		logger.Error().Err(err).Msgf("Error reading tickets for %s", station)
		return nil, classify(err)
	}

	tickets := make([]entity.StationTicket, 0, len(raw))
	for _, r := range raw {
		var t entity.StationTicket
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			logger.Warn().Msgf("Skipping unreadable ticket on %s", station)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}
