package protocol

// PendingResponse is a response in the NotReady state: its origin is
// recorded but the device has not answered yet, so it has no payload.
type PendingResponse struct {
	procID   uint8
	host     HostConfig
	consumed bool
}

// NewPendingResponse allocates the response for a request that is being
// dispatched to a replying device channel.
func NewPendingResponse(req CleanRequest) PendingResponse {
	return PendingResponse{procID: req.ProcID(), host: req.HostConfig()}
}

func (p *PendingResponse) ProcID() uint8 { return p.procID }
func (p *PendingResponse) HostConfig() HostConfig { return p.host }

// InitReady fills the payload from the words the device produced and moves
// the response into the Ready state. At most PayloadWords words are kept.
// The PendingResponse is spent afterwards; a second call returns Consumed.
func (p *PendingResponse) InitReady(words ...uint32) (ReadyResponse, error) {
	if p.consumed {
		return ReadyResponse{}, Consumed
	}
	p.consumed = true
	r := ReadyResponse{procID: p.procID, host: p.host}
	r.size = uint8(copy(r.payload[:], words))
	return r, nil
}

// ReadyResponse is a response whose payload was written by the device
// completion handler. It is consumed once by reply routing.
type ReadyResponse struct {
	procID  uint8
	host    HostConfig
	size    uint8
	payload [PayloadWords]uint32
}

func (r ReadyResponse) ProcID() uint8 { return r.procID }
func (r ReadyResponse) HostConfig() HostConfig { return r.host }
func (r ReadyResponse) Size() uint8 { return r.size }
func (r ReadyResponse) Payload() [PayloadWords]uint32 { return r.payload }

// Word returns the first payload word.
func (r ReadyResponse) Word() uint32 { return r.payload[0] }
