package server

// PlayerID 连接标识：由传输层在升级时分配的唯一令牌（UUID），
// 生命周期与连接一致，作为注册表的键
type PlayerID string

// Vec3 世界坐标系下的三维向量（位置 / 速度）
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat 飞船朝向四元数。JSON 键带下划线以兼容 three.js 的序列化格式；
// 服务端不做归一化，原样信任客户端上报的值
type Quat struct {
	X float64 `json:"_x"`
	Y float64 `json:"_y"`
	Z float64 `json:"_z"`
	W float64 `json:"_w"`
}

// PlayerState 某个连接最后上报的完整状态（服务端权威副本）
// Velocity 仅供对端做航位推算插值，服务端不参与计算
type PlayerState struct {
	ID       PlayerID `json:"id"`
	Position Vec3     `json:"position"`
	Rotation Quat     `json:"quaternion"`
	Velocity Vec3     `json:"velocity"`
}

// DefaultState 连接建立时的初始状态：原点、单位四元数、零速度
func DefaultState(id PlayerID) PlayerState {
	return PlayerState{
		ID:       id,
		Rotation: Quat{W: 1},
	}
}
