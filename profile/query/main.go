// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query mem.prof
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/kanrt/kan/container"
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reference"
	"github.com/kanrt/kan/reference/repository"
	"github.com/kanrt/kan/reference/store"
	"github.com/kanrt/kan/reflection"
)

type immediateProvider struct{ sourceTime int64 }

func (p *immediateProvider) TransientUpdateTime(repository.ResourceNativeEntry) int64 { return 0 }
func (p *immediateProvider) PluginUpdateTime(repository.ResourceNativeEntry) int64    { return 0 }
func (p *immediateProvider) SourceUpdateTime(repository.ResourceNativeEntry) (int64, error) {
	return p.sourceTime, nil
}
func (p *immediateProvider) RequestContainer(repository.ResourceNativeEntry) ids.RequestId {
	return 1
}
func (p *immediateProvider) ResolveContainer(ids.RequestId) (uint64, bool, bool) {
	return 1, true, false
}
func (p *immediateProvider) ScanDone() bool { return true }

func detectFixed(entry repository.ResourceNativeEntry, containerID uint64) ([]store.ReferenceEntry, error) {
	return []store.ReferenceEntry{{Type: "widget", Name: "target"}}, nil
}

func main() {
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	rounds := 50
	entries := 10000
	run(rounds, entries)

	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC()
	_ = pprof.WriteHeapProfile(memFile)
}

// run repeatedly populates a repository with entries entities and drains
// every in-flight scan to completion, the reference manager's steady-state
// workload, isolated from the spatial tree's profile/entities benchmark.
func run(rounds, entries int) {
	for range rounds {
		dir, err := os.MkdirTemp("", "kangen-profile-cache-*")
		if err != nil {
			panic(err)
		}

		cache, err := store.NewCache(dir, entries)
		if err != nil {
			panic(err)
		}

		repo := repository.New()
		bus := container.NewEventBus()
		provider := &immediateProvider{sourceTime: 1}
		refs := reference.BuildReferencerIndex(reflection.NewRegistry())
		manager := reference.NewManager(repo, refs, cache, nil, bus, provider, detectFixed, nil)

		for i := 0; i < entries; i++ {
			typ := ids.Global.Intern("Mesh")
			name := ids.Global.Intern(fmt.Sprintf("entry-%d", i))
			repo.AddEntry(repository.ResourceNativeEntry{AttachmentID: ids.AttachmentId(i + 1), Type: typ, Name: name})
			container.Publish(bus, reference.UpdateOuterReferencesRequest{Type: typ, Name: name})
		}

		ctx := context.Background()
		for i := 0; i < 4; i++ {
			if err := manager.Tick(ctx, 0, 8); err != nil {
				panic(err)
			}
		}

		os.RemoveAll(dir)
	}
}
