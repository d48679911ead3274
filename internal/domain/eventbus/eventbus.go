package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus 进程内事件总线
type Bus struct {
	bus evbus.Bus
}

// New 创建事件总线
func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish 同步发布事件，订阅者在调用方 goroutine 中执行
func (b *Bus) Publish(topic string, args ...interface{}) {
	if b == nil {
		return
	}
	b.bus.Publish(topic, args...)
}

// Subscribe 订阅同步事件
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}
