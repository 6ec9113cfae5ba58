package placement

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type ActionKind string

const (
	KindBulkAssign       ActionKind = "bulk_assign"
	KindIndividualAssign ActionKind = "individual_assign"
	KindRemovePlacement  ActionKind = "remove_placement"
)

// Action is an undoable staging step. The set of implementations is closed.
type Action interface {
	Kind() ActionKind
	isAction()
}

type (
	BulkAssign struct {
		StudentIDs    []int `json:"student_ids"`
		TargetClassID int   `json:"target_class_id"`
	}

	// IndividualAssign records the mapping it replaced; PreviousClassID is 0 when there was none.
	IndividualAssign struct {
		StudentID       int `json:"student_id"`
		PreviousClassID int `json:"previous_class_id"`
		NewClassID      int `json:"new_class_id"`
	}

	RemovePlacement struct {
		StudentID      int `json:"student_id"`
		RemovedClassID int `json:"removed_class_id"`
	}

	// unknownAction holds an undo entry whose kind this build does not recognize.
	unknownAction struct {
		kind ActionKind
		data json.RawMessage
	}
)

func (BulkAssign) Kind() ActionKind       { return KindBulkAssign }
func (IndividualAssign) Kind() ActionKind { return KindIndividualAssign }
func (RemovePlacement) Kind() ActionKind  { return KindRemovePlacement }
func (a unknownAction) Kind() ActionKind  { return a.kind }

func (BulkAssign) isAction()       {}
func (IndividualAssign) isAction() {}
func (RemovePlacement) isAction()  {}
func (unknownAction) isAction()    {}

type actionEnvelope struct {
	Kind ActionKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func encodeAction(a Action) (actionEnvelope, error) {
	if u, ok := a.(unknownAction); ok {
		return actionEnvelope{Kind: u.kind, Data: u.data}, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return actionEnvelope{}, errors.Wrapf(err, "encoding %s action", a.Kind())
	}
	return actionEnvelope{Kind: a.Kind(), Data: data}, nil
}

func decodeAction(env actionEnvelope) (Action, error) {
	var (
		a   Action
		err error
	)
	switch env.Kind {
	case KindBulkAssign:
		var ba BulkAssign
		err = json.Unmarshal(env.Data, &ba)
		a = ba
	case KindIndividualAssign:
		var ia IndividualAssign
		err = json.Unmarshal(env.Data, &ia)
		a = ia
	case KindRemovePlacement:
		var rp RemovePlacement
		err = json.Unmarshal(env.Data, &rp)
		a = rp
	default:
		a = unknownAction{kind: env.Kind, data: env.Data}
	}
	return a, errors.Wrapf(err, "decoding %s action", env.Kind)
}
