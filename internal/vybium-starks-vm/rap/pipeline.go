package rap

import "github.com/vybium/vybium-starks-vm/internal/vybium-starks-vm/core"

// PipelineState threads per-round ProverData through the eight pipeline
// stages (spec §4.C7). Each stage consumes the previous stage's output; Go
// has no type-state mechanism as strong as the source's fluent builder, so
// this is modeled as a linear struct with stage-tagged optional fields,
// exactly as spec §9 "Fluent pipeline" recommends for weaker type-state
// languages.
type PipelineState struct {
	Trace *MachineTrace
	Pcs   Pcs

	PreprocessedCommitment Commitment
	PreprocessedData       *ProverData

	MainCommitment Commitment
	MainData       *ProverData

	Beta, Gamma Ext

	PermutationCommitment Commitment
	PermutationData       *ProverData

	Alpha Ext

	QuotientCommitment Commitment
	QuotientData       *ProverData
}

// NewPipelineState begins a pipeline run over trace using pcs.
func NewPipelineState(trace *MachineTrace, pcs Pcs) *PipelineState {
	return &PipelineState{Trace: trace, Pcs: pcs}
}

// LoadPreprocessed attaches each chip's preprocessed matrix (stage 1) and
// assigns a monotonically increasing opening index to each non-empty one.
func (s *PipelineState) LoadPreprocessed() error {
	idx := 0
	for _, t := range s.Trace.Traces {
		pt := t.Chip.PreprocessedTrace()
		t.Preprocessed = pt
		if pt != nil && pt.Height > 0 {
			t.PreprocessedOpeningIndex = idx
			t.HasPreprocessedOpening = true
			idx++
		}
	}
	return nil
}

func collectMatrices(traces []*ChipTrace, get func(*ChipTrace) (*Matrix, bool)) ([]*Matrix, []*Domain, error) {
	var matrices []*Matrix
	var domains []*Domain
	for _, t := range traces {
		m, has := get(t)
		if !has {
			continue
		}
		d, err := NaturalDomainForDegree(m.Rows[0][0].Field(), m.Height)
		if err != nil {
			return nil, nil, err
		}
		matrices = append(matrices, m)
		domains = append(domains, d)
	}
	return matrices, domains, nil
}

// CommitPreprocessed commits every nonempty preprocessed trace in one batch
// (stage 2). Returns nil commitment if no chip has a preprocessed trace.
func (s *PipelineState) CommitPreprocessed() error {
	matrices, domains, err := collectMatrices(s.Trace.Traces, func(t *ChipTrace) (*Matrix, bool) {
		return t.Preprocessed, t.HasPreprocessedOpening
	})
	if err != nil {
		return err
	}
	if len(matrices) == 0 {
		return nil
	}
	com, data, err := s.Pcs.Commit(matrices, domains)
	if err != nil {
		return err
	}
	s.PreprocessedCommitment, s.PreprocessedData = com, data
	return nil
}

// LoadMain attaches the supplied main matrices (stage 3), symmetric to
// LoadPreprocessed.
func (s *PipelineState) LoadMain(mains map[Rap]*Matrix) error {
	idx := 0
	for _, t := range s.Trace.Traces {
		m := mains[t.Chip]
		t.Main = m
		if m != nil && m.Height > 0 {
			t.MainOpeningIndex = idx
			t.HasMainOpening = true
			idx++
		}
	}
	return nil
}

// CommitMain commits every nonempty main trace in one batch (stage 4).
func (s *PipelineState) CommitMain() error {
	matrices, domains, err := collectMatrices(s.Trace.Traces, func(t *ChipTrace) (*Matrix, bool) {
		return t.Main, t.HasMainOpening
	})
	if err != nil {
		return err
	}
	if len(matrices) == 0 {
		return nil
	}
	com, data, err := s.Pcs.Commit(matrices, domains)
	if err != nil {
		return err
	}
	s.MainCommitment, s.MainData = com, data
	return nil
}

// GeneratePermutation runs C5 per chip (stage 5): builds each chip's
// permutation trace and attaches its cumulative sum.
func (s *PipelineState) GeneratePermutation(field *core.Field, beta, gamma Ext) error {
	s.Beta, s.Gamma = beta, gamma
	idx := 0
	for _, t := range s.Trace.Traces {
		height := t.Height()
		if height == 0 {
			continue
		}
		interactions := AllInteractions(t.Chip.Sends(), t.Chip.Receives())
		perm, cumSum, err := GeneratePermutationTrace(field, t.Preprocessed, t.Main, interactions, beta, gamma)
		if err != nil {
			return err
		}
		t.Permutation = perm
		t.CumulativeSum = &cumSum
		t.PermutationOpeningIndex = idx
		t.HasPermutationOpening = true
		idx++
	}
	return nil
}

// flattenExtMatrices turns every chip's EF permutation matrix into
// ExtDegree adjacent base-field matrices for commitment (spec §4.C7 stage
// 6: "flatten EF->F before committing").
func flattenExtMatrices(field *core.Field, traces []*ChipTrace) ([]*Matrix, []*Domain, error) {
	var matrices []*Matrix
	var domains []*Domain
	for _, t := range traces {
		if !t.HasPermutationOpening {
			continue
		}
		cols := make([][]Ext, t.Permutation.Width)
		for c := 0; c < t.Permutation.Width; c++ {
			cols[c] = make([]Ext, t.Permutation.Height)
			for r := 0; r < t.Permutation.Height; r++ {
				cols[c][r] = t.Permutation.Rows[r][c]
			}
		}
		flatCols := make([][]*core.FieldElement, 0, t.Permutation.Width*ExtDegree)
		for c := 0; c < t.Permutation.Width; c++ {
			parts := Flatten(cols[c])
			for d := 0; d < ExtDegree; d++ {
				flatCols = append(flatCols, parts[d])
			}
		}
		rows := make([][]*core.FieldElement, t.Permutation.Height)
		for r := range rows {
			rows[r] = make([]*core.FieldElement, len(flatCols))
			for c, col := range flatCols {
				rows[r][c] = col[r]
			}
		}
		m := NewMatrix(len(flatCols), rows)
		d, err := NaturalDomainForDegree(field, m.Height)
		if err != nil {
			return nil, nil, err
		}
		matrices = append(matrices, m)
		domains = append(domains, d)
	}
	return matrices, domains, nil
}

// CommitPermutation commits the flattened permutation traces (stage 6).
func (s *PipelineState) CommitPermutation(field *core.Field) error {
	matrices, domains, err := flattenExtMatrices(field, s.Trace.Traces)
	if err != nil {
		return err
	}
	if len(matrices) == 0 {
		return nil
	}
	com, data, err := s.Pcs.Commit(matrices, domains)
	if err != nil {
		return err
	}
	s.PermutationCommitment, s.PermutationData = com, data
	return nil
}

// GenerateQuotient runs C8 per chip with a non-empty trace domain (stage
// 7): builds the disjoint quotient domain, obtains LDEs of every trace via
// the PCS, folds constraints, and splits into quotient_degree chunks.
func (s *PipelineState) GenerateQuotient(field *core.Field, numPublic int, publicValues []*core.FieldElement) error {
	for _, t := range s.Trace.Traces {
		height := t.Height()
		if height == 0 {
			continue
		}
		maxDeg := SymbolicMaxDegree(field, t.Chip, numPublic)
		qDeg := QuotientDegree(maxDeg)
		t.QuotientDegree = qDeg

		chunks, err := EvaluateQuotient(field, t, s.Pcs, s.PreprocessedData, s.MainData, s.PermutationData, s.Beta, s.Gamma, s.Alpha, publicValues, qDeg)
		if err != nil {
			return err
		}
		t.Quotient = chunks
		t.HasQuotientOpening = true
	}
	return nil
}

// CommitQuotient commits every chip's quotient chunks in one batch (stage
// 8), chunk-by-chunk in chip order.
func (s *PipelineState) CommitQuotient(field *core.Field) error {
	var matrices []*Matrix
	var domains []*Domain
	idx := 0
	for _, t := range s.Trace.Traces {
		if !t.HasQuotientOpening {
			continue
		}
		t.QuotientOpeningIndex = idx
		qd, err := QuotientDomain(field, t.Height(), t.QuotientDegree)
		if err != nil {
			return err
		}
		for c, chunk := range t.Quotient.Chunks {
			d := chunkSubDomain(field, qd, t.QuotientDegree, c)
			matrices = append(matrices, chunk)
			domains = append(domains, d)
			idx++
		}
	}
	if len(matrices) == 0 {
		return nil
	}
	com, data, err := s.Pcs.Commit(matrices, domains)
	if err != nil {
		return err
	}
	s.QuotientCommitment, s.QuotientData = com, data
	return nil
}
