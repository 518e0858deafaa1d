package network

import (
	"fmt"
	"sync"
)

// FakeLinks is an in-memory Links used by tests across packages. Every
// mutating call is appended to Calls.
type FakeLinks struct {
	Interfaces []Interface
	Up         map[string]bool
	Addrs      map[string][]string
	Gateways   map[string]string
	// Fail makes the named operation return an error, e.g. "SetUp wlan0".
	Fail map[string]bool

	mu    sync.Mutex
	Calls []string
}

func NewFakeLinks(ifaces ...Interface) *FakeLinks {
	return &FakeLinks{
		Interfaces: ifaces,
		Up:         make(map[string]bool),
		Addrs:      make(map[string][]string),
		Gateways:   make(map[string]string),
		Fail:       make(map[string]bool),
	}
}

func (f *FakeLinks) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
	if f.Fail[call] {
		return fmt.Errorf("%s: injected failure", call)
	}
	return nil
}

func (f *FakeLinks) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *FakeLinks) List() ([]Interface, error) {
	if f.Fail["List"] {
		return nil, fmt.Errorf("List: injected failure")
	}
	return f.Interfaces, nil
}

func (f *FakeLinks) SetUp(name string) error {
	if err := f.record("SetUp " + name); err != nil {
		return err
	}
	f.Up[name] = true
	return nil
}

func (f *FakeLinks) SetDown(name string) error {
	if err := f.record("SetDown " + name); err != nil {
		return err
	}
	f.Up[name] = false
	return nil
}

func (f *FakeLinks) IsUp(name string) (bool, error) {
	return f.Up[name], nil
}

func (f *FakeLinks) FlushAddrs(name string) error {
	if err := f.record("FlushAddrs " + name); err != nil {
		return err
	}
	delete(f.Addrs, name)
	return nil
}

func (f *FakeLinks) HasAddr(name, cidr string) (bool, error) {
	for _, a := range f.Addrs[name] {
		if a == cidr {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeLinks) ReplaceAddr(name, cidr string) error {
	if err := f.record("ReplaceAddr " + name + " " + cidr); err != nil {
		return err
	}
	f.Addrs[name] = append(f.Addrs[name], cidr)
	return nil
}

func (f *FakeLinks) IPv4Addrs(name string) ([]string, error) {
	return f.Addrs[name], nil
}

func (f *FakeLinks) DefaultGateway(name string) (string, error) {
	if f.Fail["DefaultGateway "+name] {
		return "", fmt.Errorf("DefaultGateway: injected failure")
	}
	return f.Gateways[name], nil
}

func (f *FakeLinks) ReplaceDefaultRoute(gateway, name string) error {
	if err := f.record("ReplaceDefaultRoute " + gateway + " " + name); err != nil {
		return err
	}
	f.Gateways[name] = gateway
	return nil
}

func (f *FakeLinks) DeleteDefaultRoute(gateway, name string) error {
	if err := f.record("DeleteDefaultRoute " + gateway + " " + name); err != nil {
		return err
	}
	delete(f.Gateways, name)
	return nil
}
