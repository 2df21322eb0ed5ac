package zcl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbee-go-home/internal/wpan"
)

func TestDefaultResponse(t *testing.T) {
	radio := &fakeRadio{}
	cmd, err := ParseCommand(request(radio, 0, 0x01, 0x55, 0x02))
	require.NoError(t, err)

	require.NoError(t, DefaultResponse(cmd, StatusSuccess))
	require.Len(t, radio.sent, 1)
	sent := radio.sent[0]
	assert.Equal(t, []byte{0x18, 0x55, CmdDefaultResponse, 0x02, StatusSuccess}, sent.env.Payload)
	assert.Equal(t, ClusterOnOff, sent.env.Cluster)
	assert.Equal(t, wpan.SendFlagNone, sent.flags)
}

func TestDefaultResponseEncryptedRequest(t *testing.T) {
	radio := &fakeRadio{}
	cmd, err := ParseCommand(request(radio, wpan.RxAPSEncrypt, 0x01, 0x01, 0x00))
	require.NoError(t, err)
	require.NoError(t, DefaultResponse(cmd, StatusFailure))
	require.Len(t, radio.sent, 1)
	assert.Equal(t, wpan.SendEncrypted, radio.sent[0].flags)
}

func TestDefaultResponseSilent(t *testing.T) {
	tests := []struct {
		name    string
		opts    wpan.Options
		status  uint8
		payload []byte
	}{
		{"success with responses disabled", 0, StatusSuccess, []byte{0x11, 0x01, 0x02}},
		{"broadcast address", wpan.BroadcastAddr, StatusFailure, []byte{0x01, 0x01, 0x02}},
		{"broadcast endpoint", wpan.BroadcastEP, StatusFailure, []byte{0x01, 0x01, 0x02}},
		{"default response", 0, StatusFailure, []byte{0x00, 0x01, CmdDefaultResponse, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			radio := &fakeRadio{}
			cmd, err := ParseCommand(request(radio, tt.opts, tt.payload...))
			require.NoError(t, err)
			assert.NoError(t, DefaultResponse(cmd, tt.status))
			assert.Empty(t, radio.sent)
		})
	}
}

func TestDefaultResponseFailureIgnoresDisableBit(t *testing.T) {
	radio := &fakeRadio{}
	cmd, err := ParseCommand(request(radio, 0, 0x11, 0x01, 0x02))
	require.NoError(t, err)
	require.NoError(t, DefaultResponse(cmd, StatusFailure))
	assert.Len(t, radio.sent, 1)
}

func TestDefaultResponseClusterDefaultResponseAnswered(t *testing.T) {
	// 0x0B as a cluster command is not a Default Response
	radio := &fakeRadio{}
	cmd, err := ParseCommand(request(radio, 0, 0x01, 0x01, CmdDefaultResponse))
	require.NoError(t, err)
	require.NoError(t, DefaultResponse(cmd, StatusFailure))
	assert.Len(t, radio.sent, 1)
}

func TestDefaultResponseSendError(t *testing.T) {
	boom := errors.New("tx full")
	cmd, err := ParseCommand(request(&fakeRadio{err: boom}, 0, 0x01, 0x01, 0x00))
	require.NoError(t, err)
	assert.ErrorIs(t, DefaultResponse(cmd, StatusFailure), boom)
	assert.ErrorIs(t, DefaultResponse(nil, StatusFailure), ErrInvalid)
}

func TestInvalidCluster(t *testing.T) {
	radio := &fakeRadio{}
	env := request(radio, 0, 0x00, 0x09, CmdReadAttributes, 0x00, 0x00)
	require.NoError(t, InvalidClusterHandler.HandleCluster(env))
	require.Len(t, radio.sent, 1)
	assert.Equal(t, []byte{0x18, 0x09, CmdDefaultResponse, CmdReadAttributes, StatusFailure}, radio.sent[0].env.Payload)

	require.NoError(t, InvalidClusterEndpoint.HandleEndpoint(env, nil))
	assert.Len(t, radio.sent, 2)

	assert.ErrorIs(t, InvalidCluster(request(radio, 0, 0x01)), ErrBadMessage)
}

func TestInvalidCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    uint8
	}{
		{"cluster", []byte{0x01, 0x01, 0x77}, StatusUnsupClusterCommand},
		{"general", []byte{0x00, 0x01, 0x77}, StatusUnsupGeneralCommand},
		{"manufacturer cluster", []byte{0x05, 0x5F, 0x11, 0x01, 0x77}, StatusUnsupManufClusterCommand},
		{"manufacturer general", []byte{0x04, 0x5F, 0x11, 0x01, 0x77}, StatusUnsupManufGeneralCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			radio := &fakeRadio{}
			require.NoError(t, InvalidCommand(request(radio, 0, tt.payload...)))
			require.Len(t, radio.sent, 1)
			p := radio.sent[0].env.Payload
			assert.Equal(t, tt.want, p[len(p)-1])
			assert.Equal(t, uint8(0x77), p[len(p)-2])
			assert.Zero(t, p[0]&FrameTypeMask, "default response is a general command")
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "DefaultResponse", GeneralCommandName(CmdDefaultResponse))
	assert.Equal(t, "Unknown(0x42)", GeneralCommandName(0x42))
	assert.Equal(t, "UnsupportedClusterCommand", StatusName(StatusUnsupClusterCommand))
	assert.Equal(t, "Unknown(0x42)", StatusName(0x42))
}
