package estimator

import (
	"fmt"

	"model-serving-service/internal/core/domain"
)

// columnStep is one fitted transformer inside a ColumnTransformer.
type columnStep interface {
	inputs() []domain.FeatureColumn
	width() int
	apply(row domain.FeatureRow, out []float64) error
}

// StandardScaler centers and scales numeric columns: (x - mean) / scale.
type StandardScaler struct {
	columns []string
	mean    []float64
	scale   []float64
}

func NewStandardScaler(columns []string, mean, scale []float64) (*StandardScaler, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: standard_scaler has no columns", domain.ErrInvalidBundle)
	}
	if len(mean) != len(columns) || len(scale) != len(columns) {
		return nil, fmt.Errorf("%w: standard_scaler expects %d mean/scale values, got %d/%d",
			domain.ErrInvalidBundle, len(columns), len(mean), len(scale))
	}
	for i := range columns {
		if !finite(mean[i]) || !finite(scale[i]) || scale[i] == 0 {
			return nil, fmt.Errorf("%w: standard_scaler column %q has invalid mean/scale", domain.ErrInvalidBundle, columns[i])
		}
	}
	return &StandardScaler{columns: columns, mean: mean, scale: scale}, nil
}

func (s *StandardScaler) inputs() []domain.FeatureColumn {
	cols := make([]domain.FeatureColumn, len(s.columns))
	for i, name := range s.columns {
		cols[i] = domain.FeatureColumn{Name: name, Type: domain.FeatureNumeric}
	}
	return cols
}

func (s *StandardScaler) width() int { return len(s.columns) }

func (s *StandardScaler) apply(row domain.FeatureRow, out []float64) error {
	for i, name := range s.columns {
		v, ok := row.Lookup(name)
		if !ok || v.Column.Type != domain.FeatureNumeric {
			return fmt.Errorf("%w: standard_scaler needs numeric column %q", domain.ErrTransformMismatch, name)
		}
		out[i] = (v.Number - s.mean[i]) / s.scale[i]
	}
	return nil
}

// OneHotEncoder emits one indicator per known category, in fitted order.
// Categories not seen during fitting encode to an all-zero group.
type OneHotEncoder struct {
	columns    []string
	categories [][]string
	index      []map[string]int
	offsets    []int
	total      int
}

func NewOneHotEncoder(columns []string, categories [][]string, handleUnknown string) (*OneHotEncoder, error) {
	if handleUnknown != "" && handleUnknown != "ignore" {
		return nil, fmt.Errorf("%w: handle_unknown=%q", domain.ErrUnsupportedEncoding, handleUnknown)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: one_hot has no columns", domain.ErrInvalidBundle)
	}
	if len(categories) != len(columns) {
		return nil, fmt.Errorf("%w: one_hot expects %d category lists, got %d",
			domain.ErrInvalidBundle, len(columns), len(categories))
	}

	enc := &OneHotEncoder{
		columns:    columns,
		categories: categories,
		index:      make([]map[string]int, len(columns)),
		offsets:    make([]int, len(columns)),
	}
	for i, cats := range categories {
		if len(cats) == 0 {
			return nil, fmt.Errorf("%w: one_hot column %q has no categories", domain.ErrInvalidBundle, columns[i])
		}
		idx := make(map[string]int, len(cats))
		for j, c := range cats {
			if _, dup := idx[c]; dup {
				return nil, fmt.Errorf("%w: one_hot column %q repeats category %q", domain.ErrInvalidBundle, columns[i], c)
			}
			idx[c] = j
		}
		enc.index[i] = idx
		enc.offsets[i] = enc.total
		enc.total += len(cats)
	}
	return enc, nil
}

func (e *OneHotEncoder) inputs() []domain.FeatureColumn {
	cols := make([]domain.FeatureColumn, len(e.columns))
	for i, name := range e.columns {
		cols[i] = domain.FeatureColumn{Name: name, Type: domain.FeatureCategorical}
	}
	return cols
}

func (e *OneHotEncoder) width() int { return e.total }

func (e *OneHotEncoder) apply(row domain.FeatureRow, out []float64) error {
	for i := range out {
		out[i] = 0
	}
	for i, name := range e.columns {
		v, ok := row.Lookup(name)
		if !ok || v.Column.Type != domain.FeatureCategorical {
			return fmt.Errorf("%w: one_hot needs categorical column %q", domain.ErrTransformMismatch, name)
		}
		if j, known := e.index[i][v.Category]; known {
			out[e.offsets[i]+j] = 1
		}
	}
	return nil
}

// ColumnTransformer concatenates the outputs of its steps in declared order.
// Columns not claimed by any step are dropped.
type ColumnTransformer struct {
	steps   []columnStep
	columns []domain.FeatureColumn
	width   int
}

func NewColumnTransformer(steps ...columnStep) (*ColumnTransformer, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: preprocessor has no transformers", domain.ErrInvalidBundle)
	}

	ct := &ColumnTransformer{steps: steps}
	seen := make(map[string]domain.FeatureType)
	for _, s := range steps {
		for _, col := range s.inputs() {
			if t, ok := seen[col.Name]; ok {
				if t != col.Type {
					return nil, fmt.Errorf("%w: column %q used as both %s and %s", domain.ErrInvalidBundle, col.Name, t, col.Type)
				}
				continue
			}
			seen[col.Name] = col.Type
			ct.columns = append(ct.columns, col)
		}
		ct.width += s.width()
	}
	return ct, nil
}

func (t *ColumnTransformer) Columns() []domain.FeatureColumn {
	out := make([]domain.FeatureColumn, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *ColumnTransformer) Width() int { return t.width }

func (t *ColumnTransformer) Apply(row domain.FeatureRow) ([]float64, error) {
	if len(row) != len(t.columns) {
		return nil, fmt.Errorf("%w: expected %d columns, got %d", domain.ErrTransformMismatch, len(t.columns), len(row))
	}
	for i, col := range t.columns {
		if row[i].Column != col {
			return nil, fmt.Errorf("%w: column %d is %s/%s, expected %s/%s", domain.ErrTransformMismatch,
				i, row[i].Column.Name, row[i].Column.Type, col.Name, col.Type)
		}
	}

	out := make([]float64, t.width)
	offset := 0
	for _, s := range t.steps {
		w := s.width()
		if err := s.apply(row, out[offset:offset+w]); err != nil {
			return nil, err
		}
		offset += w
	}
	return out, nil
}

var _ domain.Transform = (*ColumnTransformer)(nil)
