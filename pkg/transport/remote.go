package transport

import (
	"github.com/echtzeit-solutions/monsgeek-akko-linux-sub001/pkg/proto"
)

// Remote is a placeholder for network-bridged devices (a keyboard attached
// to another host). Every operation fails with ErrUnimplemented so callers
// can route by Kind today and light the backend up later without an API
// change.
type Remote struct {
	desc DeviceDescriptor
}

func NewRemote(desc DeviceDescriptor) *Remote {
	desc.Kind = KindRemote
	return &Remote{desc: desc}
}

func (r *Remote) WriteFrame(byte, []byte, proto.ChecksumKind) error { return ErrUnimplemented }

func (r *Remote) ReadFrame() ([]byte, error) { return nil, ErrUnimplemented }

func (r *Remote) Flush() error { return ErrUnimplemented }

func (r *Remote) Events() *EventReader { return nil }

func (r *Remote) Descriptor() DeviceDescriptor { return r.desc }

func (r *Remote) Connected() bool { return false }

func (r *Remote) Close() error { return nil }
