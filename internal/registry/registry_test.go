package registry

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	mA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	mB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestPermissions_RoleLifecycle(t *testing.T) {
	p := NewPermissions()

	if err := p.AddMinter(mA); err != nil {
		t.Fatalf("add minter failed: %v", err)
	}
	if !p.IsMinter(mA) {
		t.Error("mA should be a minter")
	}
	if err := p.AddMinter(mA); !errors.Is(err, ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}
	if err := p.RemoveMinter(mB); !errors.Is(err, ErrRoleMissing) {
		t.Fatalf("expected ErrRoleMissing, got %v", err)
	}
	if err := p.RemoveMinter(mA); err != nil {
		t.Fatalf("remove minter failed: %v", err)
	}
	if p.IsMinter(mA) {
		t.Error("mA should no longer be a minter")
	}
}

func TestPermissions_ResetAll(t *testing.T) {
	p := NewPermissions()
	p.AddMinter(mA)
	p.AddPaymentManager(mB)
	p.SetCollector(mA)

	p.ResetAll()

	if p.IsMinter(mA) || p.IsPaymentManager(mB) {
		t.Error("roles survived ResetAll")
	}
	if p.Collector() != (common.Address{}) {
		t.Error("collector survived ResetAll")
	}
}

func TestPermissions_SnapshotRestore(t *testing.T) {
	p := NewPermissions()
	p.AddMinter(mA)
	p.SetCollector(mB)

	snap := p.Snapshot()
	p.ResetAll()
	p.AddMinter(mB)
	p.Restore(snap)

	if !p.IsMinter(mA) || p.IsMinter(mB) {
		t.Error("restore did not reinstate the captured role set")
	}
	if p.Collector() != mB {
		t.Errorf("collector = %s, want %s", p.Collector().Hex(), mB.Hex())
	}
}

func TestBindings_AppendOnlyOrder(t *testing.T) {
	b := NewBindings()
	id1 := common.HexToHash("0x01")
	id2 := common.HexToHash("0x02")

	b.AppendFixedRate(mA, id1)
	b.AppendFixedRate(mB, id2)
	b.AppendDispenser(mA)

	frs := b.FixedRates()
	if len(frs) != 2 || frs[0].Exchange != mA || frs[1].ID != id2 {
		t.Errorf("fixed rates out of order: %+v", frs)
	}
	if ds := b.Dispensers(); len(ds) != 1 || ds[0] != mA {
		t.Errorf("dispensers = %+v", ds)
	}

	// Accessors hand out copies.
	frs[0].Exchange = mB
	if b.FixedRates()[0].Exchange != mA {
		t.Error("FixedRates leaked internal slice")
	}
}
