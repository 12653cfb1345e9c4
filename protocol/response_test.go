package protocol

import "testing"

func TestResponseLifecycle(t *testing.T) {
	req := newRequest(InterfaceSMI, OpRead, 0, 2)
	req.SetProcID(42)
	req.SetHostConfig(HostSPI)
	clean, err := req.InitClean()
	if err != nil {
		t.Fatalf("InitClean failed: %v", err)
	}

	pending := NewPendingResponse(clean)
	if pending.ProcID() != 42 || pending.HostConfig() != HostSPI {
		t.Errorf("Pending response lost its origin: proc %d host %v", pending.ProcID(), pending.HostConfig())
	}

	ready, err := pending.InitReady(0x1234)
	if err != nil {
		t.Fatalf("InitReady failed: %v", err)
	}
	if ready.Word() != 0x1234 || ready.Size() != 1 {
		t.Errorf("Expected word 0x1234 size 1, got 0x%X size %d", ready.Word(), ready.Size())
	}
	if ready.HostConfig() != HostSPI || ready.ProcID() != 42 {
		t.Errorf("Ready response lost its origin: proc %d host %v", ready.ProcID(), ready.HostConfig())
	}

	if _, err := pending.InitReady(1); err != Consumed {
		t.Errorf("Expected Consumed on second InitReady, got %v", err)
	}
}

func TestInitReadyKeepsFourWords(t *testing.T) {
	pending := PendingResponse{}
	ready, _ := pending.InitReady(1, 2, 3, 4, 5)
	if ready.Size() != PayloadWords {
		t.Errorf("Expected size %d, got %d", PayloadWords, ready.Size())
	}
	if ready.Payload() != [PayloadWords]uint32{1, 2, 3, 4} {
		t.Errorf("Unexpected payload %v", ready.Payload())
	}
}
