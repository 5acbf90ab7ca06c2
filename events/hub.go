package events

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// Event types pushed to connected channel UIs (POS, kiosk, kitchen).
const (
	EventOrderUpdate    = "order_update"
	EventOrderCompleted = "order_completed"
	EventTableUpdate    = "table_update"
	EventPaymentPending = "payment_pending"
	EventPaymentUpdate  = "payment_update"
	EventRiderDispatch  = "rider_dispatch"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected channel client and fans order lifecycle
// events out to them. Sends are best effort; a dead client is dropped on
// its next write error.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> channel name
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades the connection and registers the client under the
// channel name from the route.
func Handler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	channel := c.Param("channel")
	register(conn, channel)

	go func() {
		defer unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func register(conn *websocket.Conn, channel string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = channel
}

func unregister(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastOrderUpdate -> order changed status
func BroadcastOrderUpdate(order models.Order) {
	broadcast(Message{Event: EventOrderUpdate, Data: order})
}

// BroadcastOrderCompleted -> order settled
func BroadcastOrderCompleted(order models.Order) {
	broadcast(Message{Event: EventOrderCompleted, Data: order})
}

// BroadcastTableUpdate -> table occupancy changed
func BroadcastTableUpdate(table models.Table) {
	broadcast(Message{Event: EventTableUpdate, Data: table})
}

// BroadcastPaymentPending -> async charge created, QR available
func BroadcastPaymentPending(payment models.Payment) {
	broadcast(Message{Event: EventPaymentPending, Data: payment})
}

// BroadcastPaymentUpdate -> charge status changed
func BroadcastPaymentUpdate(payment models.Payment) {
	broadcast(Message{Event: EventPaymentUpdate, Data: payment})
}

// BroadcastRiderDispatch -> delivery handed to a rider
func BroadcastRiderDispatch(order models.Order) {
	broadcast(Message{Event: EventRiderDispatch, Data: order})
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("error marshaling event: %v", err)
		return
	}

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(hub.clients, conn)
			conn.Close()
		}
	}
}
