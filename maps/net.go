// Network-endpoint map builder (spec.md §3 "network... analogous, with
// domain-specific fields").
package maps

import (
	"fmt"

	"vmmcore/symbol"
	"vmmcore/vmmerr"
	"vmmcore/vspace"
)

// NetResult is the cached object for the "net" kind.
type NetResult struct {
	Entries []NetEntry
}

var tcpStates = []string{"Closed", "Listen", "SynSent", "SynRcvd", "Established", "FinWait1", "FinWait2", "CloseWait", "Closing", "LastAck", "TimeWait", "DeleteTCB"}

// BuildNet walks a fixed-stride table of TCP endpoint objects (the guest
// kernel's TCP endpoint partition table), one entry per live connection.
func BuildNet(sp *vspace.Space, sym symbol.Handle, tableVA uint64, slotCount int) (*NetResult, vmmerr.Code) {
	entrySize, ok1 := sym.TypeSize("_TCP_ENDPOINT")
	localAddrOff, ok2 := sym.FieldOffset("_TCP_ENDPOINT", "LocalAddress")
	localPortOff, ok3 := sym.FieldOffset("_TCP_ENDPOINT", "LocalPort")
	remoteAddrOff, ok4 := sym.FieldOffset("_TCP_ENDPOINT", "RemoteAddress")
	remotePortOff, ok5 := sym.FieldOffset("_TCP_ENDPOINT", "RemotePort")
	stateOff, ok6 := sym.FieldOffset("_TCP_ENDPOINT", "State")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, vmmerr.ENotFound
	}

	var entries []NetEntry
	for i := 0; i < slotCount; i++ {
		slotVA := tableVA + uint64(i)*entrySize
		localAddr, ok := readUint32(sp, slotVA+localAddrOff)
		if !ok || localAddr == 0 {
			continue
		}
		localPort, _ := readUint32(sp, slotVA+localPortOff)
		remoteAddr, _ := readUint32(sp, slotVA+remoteAddrOff)
		remotePort, _ := readUint32(sp, slotVA+remotePortOff)
		stateRaw, _ := readUint32(sp, slotVA+stateOff)
		state := "Unknown"
		if int(stateRaw) < len(tcpStates) {
			state = tcpStates[stateRaw]
		}
		entries = append(entries, NetEntry{
			Proto:      "TCP",
			LocalAddr:  ipv4String(localAddr),
			LocalPort:  int(localPort),
			RemoteAddr: ipv4String(remoteAddr),
			RemotePort: int(remotePort),
			State:      state,
		})
	}
	return &NetResult{Entries: entries}, vmmerr.Ok
}

func ipv4String(be uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(be>>24), byte(be>>16), byte(be>>8), byte(be))
}
