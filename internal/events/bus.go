package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	TopicOrders     = "orders"
	TopicPromotions = "promotions"
)

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Bus : pub/sub explicite à durée de vie bornée. Chaque abonné reçoit un
// canal et une fonction de désabonnement qu'il DOIT appeler en fin de vie
// (fermeture de websocket) ; aucun registre global de callbacks qui survit
// aux sessions. Publication non bloquante : un abonné lent perd des
// événements plutôt que de bloquer l'éditeur.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Event)}
}

func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subs[topic][id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[topic][id]; ok {
			delete(b.subs[topic], id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

func (b *Bus) Publish(topic string, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- e:
		default:
			log.Printf("⚠️ Abonné %s saturé, événement %s perdu", topic, e.Type)
		}
	}
}

// PublishJSON sérialise le payload puis publie localement et, si un client
// Redis est fourni, vers le canal Redis du même nom (instances multiples).
func (b *Bus) PublishJSON(ctx context.Context, rdb *redis.Client, topic, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Sérialisation événement %s impossible: %v", eventType, err)
		return
	}
	e := Event{Type: eventType, Payload: raw}
	b.Publish(topic, e)

	if rdb != nil {
		msg, _ := json.Marshal(e)
		if err := rdb.Publish(ctx, "events:"+topic, msg).Err(); err != nil {
			log.Printf("⚠️ Publication Redis %s échouée: %v", topic, err)
		}
	}
}

// BridgeRedis relaie les événements publiés par d'autres instances vers le
// bus local. À lancer en goroutine depuis main ; s'arrête avec le contexte.
func (b *Bus) BridgeRedis(ctx context.Context, rdb *redis.Client, topics ...string) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = "events:" + t
	}
	pubsub := rdb.Subscribe(ctx, channels...)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("⚠️ Événement Redis illisible sur %s: %v", msg.Channel, err)
				continue
			}
			b.Publish(msg.Channel[len("events:"):], e)
		}
	}
}
