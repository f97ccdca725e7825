package service

import (
	"academy_backend/internal/model"
	"academy_backend/internal/util"
	"sort"
	"time"
)

// trackChain 按 order_index 排好序的路径模块，附带 id 索引
type trackChain struct {
	trackID uint
	modules []model.Module
	index   map[uint]int
}

func newTrackChain(trackID uint, modules []model.Module) trackChain {
	ordered := make([]model.Module, len(modules))
	copy(ordered, modules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	index := make(map[uint]int, len(ordered))
	for i, m := range ordered {
		index[m.ID] = i
	}
	return trackChain{trackID: trackID, modules: ordered, index: index}
}

// progress 只统计属于本路径的模块
func (c trackChain) progress(states map[uint]*model.ModuleProgress) model.TrackProgress {
	completed := 0
	for _, m := range c.modules {
		if st, ok := states[m.ID]; ok && st.Completed {
			completed++
		}
	}
	return model.NewTrackProgress(c.trackID, len(c.modules), completed)
}

// currentModule 第一个已解锁但未完成的模块
func (c trackChain) currentModule(states map[uint]*model.ModuleProgress) *model.Module {
	for i := range c.modules {
		st, ok := states[c.modules[i].ID]
		if ok && !st.Locked && !st.Completed {
			return &c.modules[i]
		}
	}
	return nil
}

func indexStates(rows []model.ModuleProgress) map[uint]*model.ModuleProgress {
	states := make(map[uint]*model.ModuleProgress, len(rows))
	for i := range rows {
		states[rows[i].ModuleID] = &rows[i]
	}
	return states
}

type completionOutcome struct {
	Changed []model.ModuleProgress
	Before  model.TrackProgress
	After   model.TrackProgress
}

// Applied 本次调用是否真正改变了状态
func (o completionOutcome) Applied() bool {
	return len(o.Changed) > 0
}

// TrackCompleted 仅在 is_complete 由 false 变为 true 时成立
func (o completionOutcome) TrackCompleted() bool {
	return !o.Before.IsComplete && o.After.IsComplete
}

// applyCompletion 将模块标记为完成并解锁下一个模块，不做任何 I/O
// rows 中的元素会被原地修改
func applyCompletion(chain trackChain, rows []model.ModuleProgress, moduleID uint, at time.Time) (completionOutcome, error) {
	pos, ok := chain.index[moduleID]
	if !ok {
		return completionOutcome{}, util.NewNotFound("module", moduleID)
	}

	states := indexStates(rows)
	out := completionOutcome{Before: chain.progress(states)}

	target, ok := states[moduleID]
	if !ok {
		// 未报名该路径
		return completionOutcome{}, &util.ModuleLockedError{ModuleID: moduleID}
	}

	if target.Completed {
		out.After = out.Before
		return out, nil
	}
	if target.Locked {
		return completionOutcome{}, &util.ModuleLockedError{ModuleID: moduleID}
	}

	completedAt := at
	target.Completed = true
	target.CompletedAt = &completedAt
	target.Locked = false
	out.Changed = append(out.Changed, *target)

	if pos+1 < len(chain.modules) {
		if next, ok := states[chain.modules[pos+1].ID]; ok && next.Locked {
			next.Locked = false
			out.Changed = append(out.Changed, *next)
		}
	}

	out.After = chain.progress(states)
	return out, nil
}

// ModuleWithProgress 模块及学员在其上的状态
type ModuleWithProgress struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ContentType model.ContentType `json:"content_type"`
	ContentURL  *string           `json:"content_url"`
	OrderIndex  int               `json:"order_index"`
	Completed   bool              `json:"completed"`
	CompletedAt *time.Time        `json:"completed_at"`
	Locked      bool              `json:"locked"`
}

func newModuleWithProgress(m model.Module, st *model.ModuleProgress) ModuleWithProgress {
	v := ModuleWithProgress{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		ContentType: m.ContentType,
		ContentURL:  m.ContentURL,
		OrderIndex:  m.OrderIndex,
		Locked:      true,
	}
	if st != nil {
		v.Completed = st.Completed
		v.CompletedAt = st.CompletedAt
		v.Locked = st.Locked
	}
	return v
}

func (c trackChain) moduleViews(states map[uint]*model.ModuleProgress) []ModuleWithProgress {
	views := make([]ModuleWithProgress, 0, len(c.modules))
	for _, m := range c.modules {
		views = append(views, newModuleWithProgress(m, states[m.ID]))
	}
	return views
}

// enrollmentRows 为缺失的模块生成进度行
// 第一个模块以及前一个模块已完成的模块不加锁
func enrollmentRows(userID uint, chain trackChain, existing map[uint]*model.ModuleProgress) []model.ModuleProgress {
	var rows []model.ModuleProgress
	for i, m := range chain.modules {
		if _, ok := existing[m.ID]; ok {
			continue
		}
		locked := i != 0
		if locked {
			if prev, ok := existing[chain.modules[i-1].ID]; ok && prev.Completed {
				locked = false
			}
		}
		rows = append(rows, model.ModuleProgress{
			UserID:   userID,
			ModuleID: m.ID,
			TrackID:  chain.trackID,
			Locked:   locked,
		})
	}
	return rows
}
