package epubtranslate

// Progress describes how far a run has got. Chapter and Fragment count from
// one; Fragment is zero when a chapter starts.
type Progress struct {
	Chapter  int
	Chapters int
	Href     string

	Fragment  int
	Fragments int
}

// ProgressFunc receives progress updates. Calls are never concurrent.
type ProgressFunc func(Progress)
