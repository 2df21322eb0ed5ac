package stack

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbee-go-home/internal/wpan"
)

func TestEventBusOn(t *testing.T) {
	eb := NewEventBus(nil)
	var got []Event
	eb.On(EventSerialData, func(e Event) { got = append(got, e) })

	eb.Emit(Event{Type: EventSerialData, Data: "hi"})
	eb.Emit(Event{Type: EventEnvelope, Data: "other"})

	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Data)
}

func TestEventBusOnAllAndUnsubscribe(t *testing.T) {
	eb := NewEventBus(nil)
	var all, one atomic.Int32
	unsubAll := eb.OnAll(func(Event) { all.Add(1) })
	unsubOne := eb.On(EventModemStatus, func(Event) { one.Add(1) })

	eb.Emit(Event{Type: EventModemStatus})
	eb.Emit(Event{Type: EventTransmitStatus})
	assert.Equal(t, int32(2), all.Load())
	assert.Equal(t, int32(1), one.Load())

	unsubAll()
	unsubOne()
	eb.Emit(Event{Type: EventModemStatus})
	assert.Equal(t, int32(2), all.Load())
	assert.Equal(t, int32(1), one.Load())
}

func TestEventBusPanicRecovery(t *testing.T) {
	eb := NewEventBus(nil)
	var called atomic.Int32
	eb.On(EventEnvelope, func(Event) {
		called.Add(1)
		panic("handler bug")
	})
	eb.On(EventEnvelope, func(Event) { called.Add(1) })

	assert.NotPanics(t, func() { eb.Emit(Event{Type: EventEnvelope}) })
	assert.Equal(t, int32(2), called.Load())
}

func TestEventBusConcurrentEmit(t *testing.T) {
	eb := NewEventBus(nil)
	var count atomic.Int32
	eb.OnAll(func(Event) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Emit(Event{Type: EventClusterCommand})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(100), count.Load())
}

func TestEnvelopeDataJSON(t *testing.T) {
	env := wpan.NewEnvelope(nil, remote, remoteNet)
	env.SourceEndpoint = 0x0A
	env.DestEndpoint = 0x01
	env.Profile = wpan.ProfileHomeAutomation
	env.Cluster = 0x0402
	env.Options = wpan.BroadcastAddr | wpan.RxAPSEncrypt
	env.Payload = []byte{0x18, 0x01, 0x0A}

	b, err := json.Marshal(Event{Type: EventEnvelope, Data: NewEnvelopeData(env)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"envelope","data":{
		"ieee":"0013A20041526374","network":22136,
		"src_endpoint":10,"dst_endpoint":1,
		"profile":260,"cluster":1026,
		"broadcast":true,"encrypted":true,
		"payload":"18010a"}}`, string(b))
}
