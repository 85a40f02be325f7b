package main

import "github.com/dailyyoga/savekit/save"

// kv is the record type savectl writes.
type kv struct {
	save.Header
	Values map[string]string `msgpack:"values" json:"values"`
}

func (k *kv) LatestDataVersion() int { return 1 }

func (k *kv) OnResetToDefault() { k.Values = map[string]string{} }

func (k *kv) OnPostLoad() {
	if k.Values == nil {
		k.Values = map[string]string{}
	}
}

var kvType = save.NewType("kv", func() *kv { return &kv{Values: map[string]string{}} })
