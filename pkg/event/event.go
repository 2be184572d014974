// Package event defines the fixed-size, allocation-free event records that
// flow through a plugin's input and output event buffers, and the bounded
// queue that holds them for one block.
package event

// Kind identifies the variant held by a Record.
type Kind uint16

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindNoteChoke
	KindNoteEnd
	KindNoteExpression
	KindParamValue
	KindParamMod
	KindParamGestureBegin
	KindParamGestureEnd
	KindTransport
	KindMIDI1
	KindMIDISysex
	KindMIDI2
)

// Flags carried in Header.
const (
	FlagIsLive     uint32 = 1 << 0
	FlagDontRecord uint32 = 1 << 1
)

// Header is the metadata every event carries, regardless of Kind.
type Header struct {
	Time  uint32 // time in samples, relative to the start of the block
	Kind  Kind
	Flags uint32
}

// NoTargetNode marks a parameter event that is not routed to a specific
// downstream plugin.
const NoTargetNode int64 = -1

// Record is a fixed-size tagged-union event. Every field for every Kind is
// present on every Record so the queue can be a flat preallocated slice with
// no per-event allocation; TransportEvent is the largest variant and so
// fixes the record size.
type Record struct {
	Header Header

	// Parameter fields (ParamValue, ParamMod, ParamGestureBegin/End)
	ParamID      uint32
	ParamCookie  uint64
	TargetNode   int64 // NoTargetNode if not routed cross-plugin
	ParamValue   float64
	ParamIsBegin bool

	// Note fields (NoteOn/Off/Choke/End, NoteExpression)
	NoteID           int32
	Port             int16
	Channel          int16
	Key              int16
	Velocity         float64
	ExpressionID     uint32
	ExpressionValue  float64

	// Transport
	Transport TransportInfo

	// MIDI
	MIDI1     [3]byte
	MIDI2     [4]uint32
	SysexData []byte // set by SysexRecord for payloads too long for SysexInline

	// SysexInline holds up to sysexInlineCap bytes without touching
	// SysexData, so a short sysex message never allocates.
	SysexInline    [sysexInlineCap]byte
	SysexInlineLen int
}

const sysexInlineCap = 64

// TransportInfo mirrors the CLAP-style transport event payload.
type TransportInfo struct {
	Flags              uint32
	SongPosBeats       float64
	SongPosSeconds     float64
	Tempo              float64
	TempoIncrement     float64
	LoopStartBeats     float64
	LoopEndBeats       float64
	LoopStartSeconds   float64
	LoopEndSeconds     float64
	BarStart           float64
	BarNumber          int32
	TimeSignatureNum   uint16
	TimeSignatureDenom uint16
}

// Transport flags.
const (
	TransportHasTempo         uint32 = 1 << 0
	TransportHasBeatsTime     uint32 = 1 << 1
	TransportHasSecondsTime   uint32 = 1 << 2
	TransportHasTimeSignature uint32 = 1 << 3
	TransportIsPlaying        uint32 = 1 << 4
	TransportIsRecording      uint32 = 1 << 5
	TransportIsLooping        uint32 = 1 << 6
	TransportIsWithinPreRoll  uint32 = 1 << 7
)

// Note expression kinds.
const (
	ExpressionVolume     uint32 = 0
	ExpressionPan        uint32 = 1
	ExpressionTuning     uint32 = 2
	ExpressionVibrato    uint32 = 3
	ExpressionExpression uint32 = 4
	ExpressionBrightness uint32 = 5
	ExpressionPressure   uint32 = 6
)

// NoteOn builds a note-on record.
func NoteOn(time uint32, port, channel, key int16, velocity float64) Record {
	return Record{
		Header:   Header{Time: time, Kind: KindNoteOn},
		NoteID:   -1,
		Port:     port,
		Channel:  channel,
		Key:      key,
		Velocity: velocity,
	}
}

// NoteOff builds a note-off record.
func NoteOff(time uint32, port, channel, key int16, velocity float64) Record {
	return Record{
		Header:   Header{Time: time, Kind: KindNoteOff},
		NoteID:   -1,
		Port:     port,
		Channel:  channel,
		Key:      key,
		Velocity: velocity,
	}
}

// ParamValueEvent builds a parameter-value record targeting no specific
// downstream node (the common case: the parameter belongs to the plugin
// whose input event buffer it is pushed to).
func ParamValueEvent(time uint32, paramID uint32, value float64, cookie uint64) Record {
	return Record{
		Header:     Header{Time: time, Kind: KindParamValue},
		ParamID:    paramID,
		ParamValue: value,
		ParamCookie: cookie,
		TargetNode: NoTargetNode,
	}
}

// ParamModEvent builds a parameter-modulation record.
func ParamModEvent(time uint32, paramID uint32, amount float64, cookie uint64) Record {
	return Record{
		Header:      Header{Time: time, Kind: KindParamMod},
		ParamID:     paramID,
		ParamValue:  amount,
		ParamCookie: cookie,
		TargetNode:  NoTargetNode,
	}
}

// ParamGesture builds a gesture begin/end record.
func ParamGesture(time uint32, paramID uint32, isBegin bool) Record {
	kind := KindParamGestureEnd
	if isBegin {
		kind = KindParamGestureBegin
	}
	return Record{
		Header:       Header{Time: time, Kind: kind},
		ParamID:      paramID,
		ParamIsBegin: isBegin,
	}
}

// Transport builds a transport record.
func Transport(time uint32, info TransportInfo) Record {
	return Record{Header: Header{Time: time, Kind: KindTransport}, Transport: info}
}
