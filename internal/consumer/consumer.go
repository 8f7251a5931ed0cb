package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-order-service/internal/entity"
	"restaurant-order-service/internal/ordering"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type TicketPusher interface {
	PushTicket(ctx context.Context, ticket entity.StationTicket) error
}

type OrderCache interface {
	InvalidateOrder(ctx context.Context, id string)
}

// Consumer turns order events into bar and kitchen tickets and keeps the
// order cache of every instance fresh.
type Consumer struct {
	reader   MessageReader
	items    ordering.ItemSource
	stations TicketPusher
	orders   OrderCache
}

func NewConsumer(reader MessageReader, items ordering.ItemSource, stations TicketPusher, orders OrderCache) *Consumer {
	return &Consumer{reader: reader, items: items, stations: stations, orders: orders}
}

// Start reads order events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Order consumer stopped")
				return
			}
			log.Error().Msgf("Error reading message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			log.Error().Msgf("Error processing message %s: %v", msg.Key, err)
		}
	}
}

// processMessage handles one event; key is "order.<event>.<id>".
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var evt entity.OrderEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	parts := strings.SplitN(string(msg.Key), ".", 3)
	if len(parts) != 3 || parts[0] != "order" {
		return fmt.Errorf("unexpected key %q", msg.Key)
	}
	eventType, orderID := parts[1], parts[2]

	c.orders.InvalidateOrder(ctx, orderID)

	switch eventType {
	case entity.EventProcessing:
		tickets, err := BuildTickets(ctx, c.items, &evt.Order, false)
		if err != nil {
			return err
		}
		return c.push(ctx, tickets)
	case entity.EventItemsUpdated:
		// pending orders have not reached the stations yet
		if evt.Order.Status != entity.StatusProcessing {
			return nil
		}
		tickets, err := BuildTickets(ctx, c.items, &evt.Order, false)
		if err != nil {
			return err
		}
		return c.push(ctx, amendTickets(&evt.Order, tickets))
	case entity.EventCancelled:
		// only stations that already received the order need to hear about it
		if evt.PreviousStatus != entity.StatusProcessing {
			return nil
		}
		tickets, err := BuildTickets(ctx, c.items, &evt.Order, true)
		if err != nil {
			return err
		}
		return c.push(ctx, tickets)
	default:
		log.Debug().Msgf("Ignoring %s event for order %s", eventType, orderID)
		return nil
	}
}

func (c *Consumer) push(ctx context.Context, tickets []entity.StationTicket) error {
	var errs []error
	for _, t := range tickets {
		if err := c.stations.PushTicket(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// amendTickets marks tickets as replacements and adds an empty one for every
// station the edit took all lines away from.
func amendTickets(order *entity.Order, tickets []entity.StationTicket) []entity.StationTicket {
	covered := map[entity.ItemType]bool{}
	for i := range tickets {
		tickets[i].Amended = true
		covered[tickets[i].Station] = true
	}
	for _, station := range []entity.ItemType{entity.ItemTypeKitchen, entity.ItemTypeBar} {
		if covered[station] {
			continue
		}
		tickets = append(tickets, entity.StationTicket{
			OrderID:   order.ID,
			OrderCode: order.OrderID,
			Station:   station,
			Amended:   true,
			Lines:     []entity.TicketLine{},
			CreatedAt: order.UpdatedAt,
		})
	}
	return tickets
}

// BuildTickets splits the order lines by the station their catalog item is prepared at.
func BuildTickets(ctx context.Context, items ordering.ItemSource, order *entity.Order, cancelled bool) ([]entity.StationTicket, error) {
	byStation := map[entity.ItemType]*entity.StationTicket{}
	var stations []entity.ItemType

	for _, line := range order.OrderItems {
		item, err := items.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", line.ItemID, err)
		}

		ticketLine := entity.TicketLine{ItemID: line.ItemID, Name: item.Name, Quantity: line.Quantity}
		if line.ItemVariationID != nil {
			if v := item.Variation(*line.ItemVariationID); v != nil {
				ticketLine.VariationName = v.Name
			}
		}

		ticket, ok := byStation[item.Type]
		if !ok {
			ticket = &entity.StationTicket{
				OrderID:   order.ID,
				OrderCode: order.OrderID,
				Station:   item.Type,
				Cancelled: cancelled,
				CreatedAt: order.UpdatedAt,
			}
			byStation[item.Type] = ticket
			stations = append(stations, item.Type)
		}
		ticket.Lines = append(ticket.Lines, ticketLine)
	}

	tickets := make([]entity.StationTicket, 0, len(stations))
	for _, s := range stations {
		tickets = append(tickets, *byStation[s])
	}
	return tickets, nil
}
