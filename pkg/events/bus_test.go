package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusSubscribeOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	bus.Subscribe(QualityCompleted, func(event EventName, payload *Payload) {
		order = append(order, 1)
	})
	bus.Subscribe(QualityCompleted, func(event EventName, payload *Payload) {
		order = append(order, 2)
	})
	bus.Subscribe(QualityCompleted, func(event EventName, payload *Payload) {
		order = append(order, 3)
	})

	bus.Emit(QualityCompleted, &Payload{FileID: "file_1"})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBusPanicIsolation(t *testing.T) {
	bus := NewBus()

	var reached bool
	bus.Subscribe(CleaningFailed, func(event EventName, payload *Payload) {
		panic("boom")
	})
	bus.Subscribe(CleaningFailed, func(event EventName, payload *Payload) {
		reached = true
	})

	// 第一个订阅者 panic 不影响后续订阅者
	assert.NotPanics(t, func() {
		bus.Emit(CleaningFailed, &Payload{FileID: "file_1"})
	})
	assert.True(t, reached)
}

func TestBusEmitWithoutSubscribers(t *testing.T) {
	bus := NewBus()

	assert.NotPanics(t, func() {
		bus.Emit(AnalysisStarted, &Payload{FileID: "file_1"})
	})
}

func TestBusPayloadDelivered(t *testing.T) {
	bus := NewBus()

	var got *Payload
	bus.Subscribe(AnalysisCompleted, func(event EventName, payload *Payload) {
		got = payload
	})

	bus.Emit(AnalysisCompleted, &Payload{
		FileID:          "file_1",
		TaskID:          "task_1",
		QualityVersion:  2,
		CleaningVersion: 1,
		Version:         3,
	})

	assert.NotNil(t, got)
	assert.Equal(t, "file_1", got.FileID)
	assert.Equal(t, "task_1", got.TaskID)
	assert.Equal(t, int64(2), got.QualityVersion)
	assert.Equal(t, int64(1), got.CleaningVersion)
	assert.Equal(t, int64(3), got.Version)
}
