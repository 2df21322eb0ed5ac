package zcl

import "xbee-go-home/internal/wpan"

// DefaultResponse answers cmd with a Default Response carrying status. It
// sends nothing, and returns nil, for a successful command whose sender
// disabled default responses, for broadcasts and for a Default Response.
func DefaultResponse(cmd *Command, status uint8) error {
	if cmd == nil || cmd.Envelope == nil {
		return ErrInvalid
	}
	if status == StatusSuccess && cmd.FrameControl&FrameDisableDefaultResponse != 0 {
		return nil
	}
	if cmd.Envelope.Options.IsBroadcast() {
		return nil
	}
	if cmd.Type() == FrameTypeProfile && cmd.Command == CmdDefaultResponse {
		return nil
	}

	frame := cmd.ResponseHeader(CmdDefaultResponse)
	frame[0] &^= FrameTypeMask
	frame = append(frame, cmd.Command, status)
	return sendResponse(cmd, frame)
}

// InvalidCluster answers a request for a cluster the endpoint does not
// serve, or one that failed its encryption requirement, with FAILURE.
func InvalidCluster(env *wpan.Envelope) error {
	cmd, err := ParseCommand(env)
	if err != nil {
		return err
	}
	return DefaultResponse(cmd, StatusFailure)
}

// InvalidClusterHandler is InvalidCluster as a cluster handler, for
// wpan.WithInvalidClusterHandler.
var InvalidClusterHandler wpan.ClusterHandler = wpan.ClusterHandlerFunc(InvalidCluster)

// InvalidClusterEndpoint is InvalidCluster as the fallback handler of a ZCL endpoint.
var InvalidClusterEndpoint wpan.EndpointHandler = wpan.EndpointHandlerFunc(
	func(env *wpan.Envelope, _ *wpan.EndpointState) error {
		return InvalidCluster(env)
	})

// InvalidCommand answers a command the cluster does not implement with the
// matching UNSUP_* status.
func InvalidCommand(env *wpan.Envelope) error {
	cmd, err := ParseCommand(env)
	if err != nil {
		return err
	}
	return DefaultResponse(cmd, unsupportedStatus(cmd))
}

func unsupportedStatus(cmd *Command) uint8 {
	status := StatusUnsupGeneralCommand
	if cmd.IsMfgSpecific() {
		status = StatusUnsupManufGeneralCommand
	}
	// cluster specific codes sit one below the general ones
	if cmd.IsClusterCommand() {
		status--
	}
	return status
}
