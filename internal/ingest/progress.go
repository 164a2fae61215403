package ingest

// ProgressFunc receives the overall completion of one course's ingestion as
// a value in [0, 1]. Successive values never decrease and a successful run
// ends with exactly 1.
type ProgressFunc func(fraction float64)

// Work units: one for the markdown download, one per parsed question, one
// per image and one for persisting the set. The total is only known once
// the markdown is parsed, so nothing is reported before that.
type progress struct {
	fn    ProgressFunc
	total int
	done  int
	last  float64
}

func newProgress(fn ProgressFunc) *progress {
	return &progress{fn: fn}
}

// parsed sets the unit total and credits the markdown and question units.
func (p *progress) parsed(questions, images int) {
	p.total = 1 + questions + images + 1
	p.done = 1 + questions
	p.report(float64(p.done) / float64(p.total))
}

func (p *progress) imageStored() {
	if p.done < p.total-1 {
		p.done++
	}
	p.report(float64(p.done) / float64(p.total))
}

func (p *progress) finish() {
	p.done = p.total
	p.report(1)
}

func (p *progress) report(f float64) {
	if f < p.last {
		return
	}
	if f > 1 {
		f = 1
	}
	p.last = f
	if p.fn != nil {
		p.fn(f)
	}
}
