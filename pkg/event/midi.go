package event

import (
	"gitlab.com/gomidi/midi/v2"
)

// MIDI1FromRecord encodes a note-on/note-off record as a raw MIDI 1.0
// message using gomidi's message builders, rather than hand assembling
// status bytes.
func MIDI1FromRecord(r *Record) (midi.Message, bool) {
	channel := uint8(r.Channel) & 0x0F
	switch r.Header.Kind {
	case KindNoteOn:
		if r.Key < 0 || r.Key > 127 {
			return nil, false
		}
		return midi.NoteOn(channel, uint8(r.Key), uint8(r.Velocity*127.0)), true
	case KindNoteOff:
		if r.Key < 0 || r.Key > 127 {
			return nil, false
		}
		return midi.NoteOff(channel, uint8(r.Key)), true
	default:
		return nil, false
	}
}

// RecordFromMIDI1 decodes a raw MIDI 1.0 message into an event Record,
// mirroring the CLAP note-dialect mapping: note-on with velocity 0 is
// treated as note-off.
func RecordFromMIDI1(time uint32, port int16, msg midi.Message) (Record, bool) {
	var ch, key, vel uint8
	if msg.GetNoteOn(&ch, &key, &vel) {
		if vel == 0 {
			return NoteOff(time, port, int16(ch), int16(key), 0), true
		}
		return NoteOn(time, port, int16(ch), int16(key), float64(vel)/127.0), true
	}
	if msg.GetNoteOff(&ch, &key, &vel) {
		return NoteOff(time, port, int16(ch), int16(key), float64(vel)/127.0), true
	}
	var cc, val uint8
	if msg.GetControlChange(&ch, &cc, &val) {
		r := ParamValueEvent(time, uint32(cc), float64(val)/127.0, 0)
		r.Port, r.Channel = port, int16(ch)
		return r, true
	}
	return Record{}, false
}

// MIDI1Record stores a raw 3-byte MIDI 1.0 message as an inline event.
func MIDI1Record(time uint32, port int16, data [3]byte) Record {
	r := Record{Header: Header{Time: time, Kind: KindMIDI1}, Port: port}
	r.MIDI1 = data
	return r
}

// MIDI2Record stores a raw 4-uint32 Universal MIDI Packet as an inline
// event. gomidi/midi/v2 does not parse UMP; the engine forwards it opaquely.
func MIDI2Record(time uint32, port int16, packet [4]uint32) Record {
	r := Record{Header: Header{Time: time, Kind: KindMIDI2}, Port: port}
	r.MIDI2 = packet
	return r
}

// SysexRecord stores a MIDI system-exclusive payload, inline when it fits
// within sysexInlineCap and otherwise by keeping a reference to data in
// SysexData, without copying it. Exceeding inline capacity is not an
// error and is not logged.
func SysexRecord(time uint32, port int16, data []byte) Record {
	r := Record{Header: Header{Time: time, Kind: KindMIDISysex}, Port: port}
	if len(data) <= sysexInlineCap {
		copy(r.SysexInline[:], data)
		r.SysexInlineLen = len(data)
	} else {
		r.SysexData = data
	}
	return r
}

// Bytes returns the sysex payload regardless of which storage it used.
func (r *Record) Bytes() []byte {
	if r.SysexData != nil {
		return r.SysexData
	}
	return r.SysexInline[:r.SysexInlineLen]
}
