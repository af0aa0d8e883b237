package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Ownership resolves and maintains coach to class assignment edges.
type Ownership interface {
	OwnershipStore

	AssignCoach(ctx context.Context, coachID, classID uuid.UUID) error
	AssignCoachTx(ctx context.Context, tx bun.IDB, coachID, classID uuid.UUID) error
	UnassignCoach(ctx context.Context, coachID, classID uuid.UUID) error

	EnrollStudent(ctx context.Context, classID, studentID uuid.UUID) error
	EnrollStudentTx(ctx context.Context, tx bun.IDB, classID, studentID uuid.UUID) error
}

type ownership struct {
	db *bun.DB
}

var _ Ownership = (*ownership)(nil)

// NewOwnershipRepository builds the bun-backed ownership repository.
func NewOwnershipRepository(db *bun.DB) Ownership {
	return &ownership{db: db}
}

// HasEdge reports whether the exact (coach, class) assignment exists.
func (o *ownership) HasEdge(ctx context.Context, coachID, classID uuid.UUID) (bool, error) {
	return o.db.NewSelect().
		Model((*OwnershipEdge)(nil)).
		Where("coach_id = ?", coachID.String()).
		Where("class_id = ?", classID.String()).
		Exists(ctx)
}

// ClassIDsForStudent returns every class the student is enrolled in.
func (o *ownership) ClassIDsForStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	var rows []Enrollment
	err := o.db.NewSelect().
		Model(&rows).
		Where("student_id = ?", studentID.String()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	classIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		classIDs = append(classIDs, row.ClassID)
	}
	return classIDs, nil
}

func (o *ownership) AssignCoach(ctx context.Context, coachID, classID uuid.UUID) error {
	return o.AssignCoachTx(ctx, o.db, coachID, classID)
}

func (o *ownership) AssignCoachTx(ctx context.Context, tx bun.IDB, coachID, classID uuid.UUID) error {
	edge := &OwnershipEdge{
		CoachID: coachID,
		ClassID: classID,
	}

	_, err := tx.NewInsert().
		Model(edge).
		On("CONFLICT DO NOTHING").
		Exec(ctx)

	return err
}

func (o *ownership) UnassignCoach(ctx context.Context, coachID, classID uuid.UUID) error {
	_, err := o.db.NewDelete().
		Model((*OwnershipEdge)(nil)).
		Where("coach_id = ?", coachID.String()).
		Where("class_id = ?", classID.String()).
		Exec(ctx)

	return err
}

func (o *ownership) EnrollStudent(ctx context.Context, classID, studentID uuid.UUID) error {
	return o.EnrollStudentTx(ctx, o.db, classID, studentID)
}

func (o *ownership) EnrollStudentTx(ctx context.Context, tx bun.IDB, classID, studentID uuid.UUID) error {
	row := &Enrollment{
		ClassID:   classID,
		StudentID: studentID,
	}

	_, err := tx.NewInsert().
		Model(row).
		On("CONFLICT DO NOTHING").
		Exec(ctx)

	return err
}
