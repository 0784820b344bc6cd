package ingest

// Stage is a step of one ingestion.
type Stage int

// Ingestion stages in execution order.
const (
	StageValidate Stage = iota
	StageDedup
	StageAcquire
	StageNormalize
	StageEmbed
	StagePersist
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageDedup:
		return "dedup"
	case StageAcquire:
		return "acquire"
	case StageNormalize:
		return "normalize"
	case StageEmbed:
		return "embed"
	case StagePersist:
		return "persist"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
