package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind enumerates the control commands recognized on the wire. Unrecognized
// but well-formed messages decode to KindUnknown and are ignored by handlers.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindDeviceList
	KindGetDeviceList
	KindSwitchDevice
	KindSetTargetLang
	KindStartRecording
	KindPauseRecording
	KindResumeRecording
	KindStopRecording
	KindGetStatus
	KindRecordingStarted
	KindRecordingCompleted
)

// String returns the command name for logging.
func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindDeviceList:
		return "device_list"
	case KindGetDeviceList:
		return "get_device_list"
	case KindSwitchDevice:
		return "switch_device"
	case KindSetTargetLang:
		return "set_target_lang"
	case KindStartRecording:
		return "start_recording"
	case KindPauseRecording:
		return "pause_recording"
	case KindResumeRecording:
		return "resume_recording"
	case KindStopRecording:
		return "stop_recording"
	case KindGetStatus:
		return "get_status"
	case KindRecordingStarted:
		return "recording_started"
	case KindRecordingCompleted:
		return "recording_completed"
	default:
		return "unknown"
	}
}

// ErrMalformed marks a text frame that is not a JSON object. Handlers log and
// ignore it; the connection stays open.
var ErrMalformed = errors.New("relay: malformed command")

// Command is the decoded form of one control message. Raw preserves the exact
// bytes for verbatim forwarding between endpoints.
type Command struct {
	Kind Kind
	Raw  []byte

	// DeviceList carries the payload of device_list pushes.
	DeviceList json.RawMessage

	// SwitchDevice carries the device identifier of switch_device requests.
	SwitchDevice json.RawMessage

	// TargetLang is set for set_target_lang.
	TargetLang string

	// SessionID and Filename are set for recording commands when present.
	SessionID string
	Filename  string

	// StartTime is the Unix timestamp carried by recording_started.
	StartTime float64
}

// envelope matches every recognized message shape at once. Command identity
// is keyed on field presence, matching clients that send e.g.
// {"start_recording": true} with arbitrary truthy values.
type envelope struct {
	Type               string          `json:"type"`
	DeviceList         json.RawMessage `json:"device_list"`
	GetDeviceList      json.RawMessage `json:"get_device_list"`
	SwitchDevice       json.RawMessage `json:"switch_device"`
	SetTargetLang      *string         `json:"set_target_lang"`
	StartRecording     json.RawMessage `json:"start_recording"`
	PauseRecording     json.RawMessage `json:"pause_recording"`
	ResumeRecording    json.RawMessage `json:"resume_recording"`
	StopRecording      json.RawMessage `json:"stop_recording"`
	GetStatus          json.RawMessage `json:"get_status"`
	RecordingStarted   json.RawMessage `json:"recording_started"`
	RecordingCompleted json.RawMessage `json:"recording_completed"`
	SessionID          string          `json:"session_id"`
	Filename           string          `json:"filename"`
	StartTime          float64         `json:"start_time"`
}

// DecodeCommand parses one text frame into a [Command]. The shapes are
// mutually exclusive per message; when several keys are present the most
// specific one wins in the order below.
func DecodeCommand(raw []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	cmd := Command{
		Raw:       raw,
		SessionID: env.SessionID,
		Filename:  env.Filename,
		StartTime: env.StartTime,
	}

	switch {
	case env.Type == "ping":
		cmd.Kind = KindPing
	case env.DeviceList != nil:
		cmd.Kind = KindDeviceList
		cmd.DeviceList = env.DeviceList
	case env.RecordingStarted != nil:
		cmd.Kind = KindRecordingStarted
	case env.RecordingCompleted != nil:
		cmd.Kind = KindRecordingCompleted
	case env.SwitchDevice != nil:
		cmd.Kind = KindSwitchDevice
		cmd.SwitchDevice = env.SwitchDevice
	case env.StartRecording != nil:
		cmd.Kind = KindStartRecording
	case env.PauseRecording != nil:
		cmd.Kind = KindPauseRecording
	case env.ResumeRecording != nil:
		cmd.Kind = KindResumeRecording
	case env.StopRecording != nil:
		cmd.Kind = KindStopRecording
	case env.GetStatus != nil:
		cmd.Kind = KindGetStatus
	case isTruthy(env.GetDeviceList):
		cmd.Kind = KindGetDeviceList
	case env.SetTargetLang != nil:
		cmd.Kind = KindSetTargetLang
		cmd.TargetLang = *env.SetTargetLang
	default:
		cmd.Kind = KindUnknown
	}
	return cmd, nil
}

// isTruthy mirrors the loose client convention of {"get_device_list": true}:
// any value except absent, null, false, 0, and "" counts.
func isTruthy(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	switch string(raw) {
	case "null", "false", "0", `""`:
		return false
	}
	return true
}
