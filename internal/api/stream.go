package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gotrs-io/todomvc-e2e/internal/models"
)

// Event types sent on the run stream.
const (
	EventRunStarted       = "run_started"
	EventScenarioFinished = "scenario_finished"
	EventRunFinished      = "run_finished"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// read-only stream of public probe results
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one message on the run stream.
type Event struct {
	Type   string                 `json:"type"`
	RunID  string                 `json:"run_id"`
	Time   time.Time              `json:"time"`
	Run    *models.Run            `json:"run,omitempty"`
	Result *models.ScenarioResult `json:"result,omitempty"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans probe progress out to websocket clients. It satisfies
// probe.Observer so it can be handed straight to the scheduler.
type Hub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	logger  *log.Logger
	now     func() time.Time
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients: make(map[*streamClient]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Hub) RunStarted(run models.Run) {
	h.publish(Event{Type: EventRunStarted, RunID: run.ID, Run: &run})
}

func (h *Hub) ScenarioFinished(runID string, res models.ScenarioResult) {
	h.publish(Event{Type: EventScenarioFinished, RunID: runID, Result: &res})
}

func (h *Hub) RunFinished(run models.Run) {
	run.Results = nil
	h.publish(Event{Type: EventRunFinished, RunID: run.ID, Run: &run})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) publish(ev Event) {
	ev.Time = h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			// drop clients that cannot keep up
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Printf("[stream] client connected, %d total", n)
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Printf("[stream] client disconnected, %d total", n)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve upgrades the request and streams events until the client leaves.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("[stream] upgrade failed: %v", err)
		return
	}
	client := &streamClient{conn: conn, send: make(chan Event, sendBuffer)}
	h.add(client)

	go client.writePump()
	client.readPump()
	h.remove(client)
}

// readPump only services control frames; clients never send data.
func (c *streamClient) readPump() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
