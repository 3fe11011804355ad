package recon

import (
	"context"

	"github.com/derekvan/canvas-markdown-tools/ir"
	"github.com/derekvan/canvas-markdown-tools/links"
)

// PlanRun computes what Run would do without performing a single write.
// Remote reads still happen, so the plan reflects the actual remote state.
func (e *Engine) PlanRun(ctx context.Context, course *ir.Course) (*Plan, error) {
	res := links.NewResolver(course, e.baseURL, e.courseID)
	if err := res.Check(course); err != nil {
		return nil, err
	}
	plan := &Plan{}

	for _, m := range course.Modules {
		for _, it := range m.Items {
			f, ok := it.(*ir.File)
			if !ok {
				continue
			}
			op := Operation{Entity: "file", Title: f.Title}
			if _, err := e.remote.FindFile(ctx, f.EffectiveFilename()); err != nil {
				op.Action = ActionSkip
				op.Reason = err.Error()
			}
			plan.Ops = append(plan.Ops, op)
		}
	}

	for _, m := range course.Modules {
		plan.Ops = append(plan.Ops, e.planModule(ctx, m))
		for _, it := range m.Items {
			switch it.(type) {
			case *ir.Page, *ir.Assignment, *ir.Discussion:
			default:
				continue
			}
			plan.Ops = append(plan.Ops, e.planContent(ctx, res, it))
		}
	}

	for _, m := range course.Modules {
		for i, it := range m.Items {
			plan.Ops = append(plan.Ops, e.planModuleItem(ctx, m, it, i+1))
		}
	}
	return plan, nil
}

func (e *Engine) planModule(ctx context.Context, m *ir.Module) Operation {
	op := Operation{Entity: "module", Title: m.Title}
	if m.RemoteID == "" {
		op.Action = ActionCreate
		return op
	}
	remote, err := e.remote.GetModule(ctx, m.RemoteID)
	switch {
	case IsNotFound(err):
		op.Action = ActionCreate
	case err != nil:
		op.Action = ActionSkip
		op.Reason = err.Error()
	default:
		if fields := diffModule(m, remote); len(fields) > 0 {
			op.Action = ActionUpdate
			op.Fields = fields
		}
	}
	return op
}

func (e *Engine) planContent(ctx context.Context, res *links.Resolver, it ir.Item) Operation {
	c := it.Common()
	op := Operation{Entity: it.Kind().Tag(), Title: c.Title}
	if c.RemoteID == "" {
		op.Action = ActionCreate
		return op
	}
	body, _ := ir.BodyOf(it)
	bodyHTML, _, err := e.renderBody(res, body)
	if err != nil {
		op.Action = ActionSkip
		op.Reason = err.Error()
		return op
	}

	var fields []string
	switch v := it.(type) {
	case *ir.Page:
		remote, gerr := e.remote.GetPage(ctx, c.RemoteID)
		if op.Action, op.Reason = planGetResult(gerr); gerr != nil {
			return op
		}
		fields = diffPage(v.Title, bodyHTML, remote)
	case *ir.Assignment:
		remote, gerr := e.remote.GetAssignment(ctx, c.RemoteID)
		if op.Action, op.Reason = planGetResult(gerr); gerr != nil {
			return op
		}
		fields = diffAssignment(wantAssignment(v, bodyHTML), remote)
	case *ir.Discussion:
		remote, gerr := e.remote.GetDiscussion(ctx, c.RemoteID)
		if op.Action, op.Reason = planGetResult(gerr); gerr != nil {
			return op
		}
		fields = diffDiscussion(wantDiscussion(v, bodyHTML), remote)
	}
	if len(fields) > 0 {
		op.Action = ActionUpdate
		op.Fields = fields
	}
	return op
}

// planGetResult converts a Get error into the action a real run would take.
func planGetResult(err error) (Action, string) {
	switch {
	case err == nil:
		return ActionNone, ""
	case IsNotFound(err):
		return ActionCreate, ""
	default:
		return ActionSkip, err.Error()
	}
}

func (e *Engine) planModuleItem(ctx context.Context, m *ir.Module, it ir.Item, pos int) Operation {
	c := it.Common()
	op := Operation{Entity: "module item", Title: c.Title}
	if c.ModuleItemID == "" || m.RemoteID == "" {
		op.Action = ActionCreate
		return op
	}
	remote, err := e.remote.GetModuleItem(ctx, m.RemoteID, c.ModuleItemID)
	switch {
	case IsNotFound(err):
		op.Action = ActionCreate
	case err != nil:
		op.Action = ActionSkip
		op.Reason = err.Error()
	default:
		if fields := diffModuleItem(moduleItemFor(it, pos), remote); len(fields) > 0 {
			op.Action = ActionUpdate
			op.Fields = fields
		}
	}
	return op
}
