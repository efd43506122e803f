package watcher

// ChangeAnalysis describes what a debounced change means for the loaded snapshot
type ChangeAnalysis struct {
	NeedReload   bool
	Removed      bool // the file is gone and the previous snapshot stays in use
	ChangedFiles []string
}

// AnalyzeChanges decides whether a change event calls for a reload
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeWrite:
		analysis.NeedReload = true
	case ChangeTypeRemove:
		analysis.Removed = true
	}

	return analysis
}
