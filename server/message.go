package server

import (
	"encoding/json"
	"fmt"
)

// 线上事件名：与浏览器端约定的消息契约
const (
	// EvCurrentPlayers 服务端→新连接：全量注册表快照（含新玩家自己的默认条目）
	EvCurrentPlayers = "currentPlayers"
	// EvNewPlayer 服务端→其他连接：单个新玩家的状态
	EvNewPlayer = "newPlayer"
	// EvPlayerMovement 客户端→服务端：本机飞船的位置/朝向/速度上报
	EvPlayerMovement = "playerMovement"
	// EvPlayerMoved 服务端→其他连接：发送者的完整最新状态
	EvPlayerMoved = "playerMoved"
	// EvPlayerDisconnected 服务端→所有剩余连接：裸连接标识
	EvPlayerDisconnected = "playerDisconnected"
)

// Envelope 统一信封：{"event":"...","data":{...}}（WebSocket 文本消息）
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MovementUpdate playerMovement 的载荷，字段整体替换对应玩家的状态
type MovementUpdate struct {
	Position Vec3 `json:"position"`
	Rotation Quat `json:"quaternion"`
	Velocity Vec3 `json:"velocity"`
}

// Encode 将事件与载荷打包为一条信封消息
func Encode(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("encode: empty event name")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// DecodeEnvelope 解出信封层，载荷保持原始字节
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if len(b) == 0 {
		return e, fmt.Errorf("decode: empty message")
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, err
	}
	return e, nil
}

// DecodeData 按目标类型解出信封内的载荷
func DecodeData[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 {
		return out, fmt.Errorf("decode %s: empty data", env.Event)
	}
	err := json.Unmarshal(env.Data, &out)
	return out, err
}
