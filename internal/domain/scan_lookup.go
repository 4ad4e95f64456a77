package domain

// ScanTargetKind says what a scanned barcode resolves to
type ScanTargetKind string

const (
	ScanTargetPickItem ScanTargetKind = "pick_item"
	ScanTargetPackItem ScanTargetKind = "pack_item"
	ScanTargetLocation ScanTargetKind = "location"
	ScanTargetBin      ScanTargetKind = "bin"
)

// ScanTarget is what a handheld scan hit resolves to
type ScanTarget struct {
	TaskID     string         `json:"taskId,omitempty"`
	TaskItemID string         `json:"taskItemId,omitempty"`
	BinID      string         `json:"binId,omitempty"`
	Kind       ScanTargetKind `json:"kind"`
}

// ScanLookup maps every barcode an operator might scan to its target.
// It is rebuilt from live task state on each status read, never stored.
type ScanLookup struct {
	Targets map[string]ScanTarget `json:"targets"`
}

// Resolve returns the target for a scanned barcode
func (l *ScanLookup) Resolve(barcode string) (ScanTarget, bool) {
	target, ok := l.Targets[barcode]
	return target, ok
}

// BuildScanLookup indexes the active lines of the given pick task, pack
// task and bin. Per item the expected barcodes are registered in
// preference order UPC, then item barcode, then SKU; pick lines also
// register their location barcode. Terminal lines are excluded, and a
// barcode already claimed by an earlier line is not overwritten.
func BuildScanLookup(pickTask, packTask *WorkTask, bin *PickBin) *ScanLookup {
	lookup := &ScanLookup{Targets: make(map[string]ScanTarget)}

	register := func(barcode string, target ScanTarget) {
		if barcode == "" {
			return
		}
		if _, claimed := lookup.Targets[barcode]; claimed {
			return
		}
		lookup.Targets[barcode] = target
	}

	if pickTask != nil && !pickTask.Status.IsTerminal() {
		for i := range pickTask.Items {
			item := &pickTask.Items[i]
			if item.Status.IsTerminal() {
				continue
			}
			target := ScanTarget{TaskID: pickTask.TaskID, TaskItemID: item.ItemID, Kind: ScanTargetPickItem}
			register(item.UPC, target)
			register(item.Barcode, target)
			register(item.SKU, target)
			register(item.Location.Barcode, ScanTarget{
				TaskID:     pickTask.TaskID,
				TaskItemID: item.ItemID,
				Kind:       ScanTargetLocation,
			})
		}
	}

	if packTask != nil && !packTask.Status.IsTerminal() {
		for i := range packTask.Items {
			item := &packTask.Items[i]
			if item.Status.IsTerminal() {
				continue
			}
			target := ScanTarget{TaskID: packTask.TaskID, TaskItemID: item.ItemID, Kind: ScanTargetPackItem}
			register(item.UPC, target)
			register(item.Barcode, target)
			register(item.SKU, target)
		}
	}

	if bin != nil && bin.Status == BinStatusOpen {
		register(bin.Barcode, ScanTarget{BinID: bin.BinID, Kind: ScanTargetBin})
	}

	return lookup
}
