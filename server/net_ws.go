package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// errSendQueueFull 发送队列满：消息被丢弃（实时数据，不值得背压）
var errSendQueueFull = errors.New("send queue full")

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
	cfg  Config

	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn, cfg Config) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, cfg.SendQueueSize),
		cfg:  cfg,
	}
}

// Send 将要发送的消息压入队列（非阻塞，满则丢弃并报错，由注册表计数）
func (c *ClientConn) Send(b []byte) error {
	select {
	case c.send <- b:
		return nil
	default:
		// 为了实时性，丢弃而不是阻塞事件循环
		return errSendQueueFull
	}
}

// Close 关闭底层连接与发送队列（注册表与读泵都可能触发，只执行一次）
func (c *ClientConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.send)
	})
	return c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS，并按间隔发 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval())
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout()))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout()))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息，解信封后投递到注册表收件箱
func (c *ClientConn) readPump(reg *Registry, id PlayerID) {
	defer c.ws.Close()
	// 读泵退出即视为断开，由注册表在事件循环中删档并广播
	defer func() { reg.Inbox <- Disconnect{ID: id} }()

	c.ws.SetReadLimit(int64(c.cfg.ReadLimitBytes))
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout()))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := DecodeEnvelope(payload)
		if err != nil {
			reg.metrics.IncBadMessagesIgnored()
			continue
		}
		switch env.Event {
		case EvPlayerMovement:
			u, err := DecodeData[MovementUpdate](env)
			if err != nil {
				reg.metrics.IncBadMessagesIgnored()
				continue
			}
			reg.Inbox <- Movement{ID: id, Update: u}
		default:
			// 未知事件：协议只定义入站 playerMovement，其余忽略
			reg.metrics.IncBadMessagesIgnored()
		}
	}
}

// Gateway WebSocket 接入层：持有注册表句柄，不用包级全局（便于单测）
type Gateway struct {
	registry *Registry
	cfg      Config
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewGateway(cfg Config, reg *Registry, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		registry: reg,
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 演示环境：允许所有来源（生产环境需严格限制）
				return true
			},
		},
	}
}

// HandleWS WebSocket 接入：升级连接、分配连接标识、启动读写泵
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnf("upgrade error: %v", err)
		return
	}

	// 连接标识由传输层分配：全新、唯一、对客户端不透明
	id := PlayerID(uuid.NewString())
	client := NewClientConn(ws, g.cfg)
	g.registry.Inbox <- Connect{ID: id, Conn: client}

	go client.writePump()
	go client.readPump(g.registry, id)
}
