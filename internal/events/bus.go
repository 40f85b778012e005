package events

import (
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/talkincode/productsapi/internal/domain"
)

type Type string

const (
	ProductCreated Type = "product:created"
	ProductUpdated Type = "product:updated"
	ProductDeleted Type = "product:deleted"
)

var productTopics = []Type{ProductCreated, ProductUpdated, ProductDeleted}

// ProductEvent is published after a product write has been persisted
type ProductEvent struct {
	Type    Type           `json:"type"`
	Product domain.Product `json:"product"`
	At      time.Time      `json:"at"`
}

func NewProductEvent(t Type, p *domain.Product) ProductEvent {
	return ProductEvent{Type: t, Product: *p.Clone(), At: time.Now().UTC()}
}

// Bus is the in-process product event bus
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(evt ProductEvent) {
	b.bus.Publish(string(evt.Type), evt)
}

// Subscribe registers fn for every product topic. Async handlers run on
// their own goroutine, one event at a time.
func (b *Bus) Subscribe(fn func(ProductEvent), async bool) error {
	for _, topic := range productTopics {
		var err error
		if async {
			err = b.bus.SubscribeAsync(string(topic), fn, true)
		} else {
			err = b.bus.Subscribe(string(topic), fn)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until async handlers are done
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}

// LogEvent writes an audit line for each product event
func LogEvent(evt ProductEvent) {
	zap.L().Info("product event",
		zap.String("type", string(evt.Type)),
		zap.Int64("product_id", evt.Product.ID),
		zap.String("name", evt.Product.Name),
		zap.Bool("has_image", evt.Product.HasImage()),
	)
}
