package usecase

import (
	"context"
	"fmt"
)

// RestoreState tracks a restore request.
type RestoreState int

const (
	RestoreRequested RestoreState = iota
	RestoreConfirmationPending
	RestoreExecuting
	RestoreSucceeded
	RestoreFailed
)

func (s RestoreState) String() string {
	switch s {
	case RestoreConfirmationPending:
		return "confirmation pending"
	case RestoreExecuting:
		return "executing"
	case RestoreSucceeded:
		return "succeeded"
	case RestoreFailed:
		return "failed"
	default:
		return "requested"
	}
}

// RestoreOptions controls a restore.
type RestoreOptions struct {
	// Target overrides the reconstructed original path.
	Target string
	// Confirmed allows overwriting an existing target.
	Confirmed bool
}

// RestorePlan is what a restore would do.
type RestorePlan struct {
	Backup       BackupRecord
	Target       string
	TargetExists bool
}

// RestoreOutcome is the typed result of a restore task.
type RestoreOutcome struct {
	State RestoreState
	Plan  RestorePlan
	// Message is the human-readable result shown to the user.
	Message string
}

// PlanRestore decodes backupPath and checks whether the target exists, so
// the caller can ask for confirmation before calling Restore.
func (e *Engine) PlanRestore(ctx context.Context, backupPath, target string) (RestorePlan, error) {
	fs := e.deps.FileSystem
	rec, err := e.resolveBackup(ctx, backupPath)
	if err != nil {
		return RestorePlan{}, err
	}
	plan := RestorePlan{Backup: rec, Target: fs.Join(fs.Dir(rec.Path), rec.OriginalName)}
	if target != "" {
		abs, err := fs.Abs(ctx, target)
		if err != nil {
			return RestorePlan{}, classifyFSError(fs, err, "resolve target", target)
		}
		plan.Target = abs
	}
	if _, err := fs.Lstat(ctx, plan.Target); err == nil {
		plan.TargetExists = true
	} else if !fs.IsNotExist(err) {
		return RestorePlan{}, classifyFSError(fs, err, "stat target", plan.Target)
	}
	return plan, nil
}

// resolveBackup parses a selected backup path into a record.
func (e *Engine) resolveBackup(ctx context.Context, backupPath string) (BackupRecord, error) {
	fs := e.deps.FileSystem
	abs, err := fs.Abs(ctx, backupPath)
	if err != nil {
		return BackupRecord{}, classifyFSError(fs, err, "resolve backup", backupPath)
	}
	rec, ok := Parse(fs.Base(abs))
	if !ok {
		return BackupRecord{}, InvalidSelection.New("not a backup: %s", fs.Base(abs)).
			WithProperty(pathProperty, abs)
	}
	info, err := fs.Stat(ctx, abs)
	if err != nil {
		return BackupRecord{}, classifyFSError(fs, err, "stat backup", abs)
	}
	if !info.IsRegular() {
		return BackupRecord{}, InvalidSelection.New("backup is not a regular file: %s", abs).
			WithProperty(pathProperty, abs)
	}
	rec.Path = abs
	rec.Size = info.Size()
	rec.ModTime = info.ModTime()
	return rec, nil
}

// Restore writes backupPath back to its original location. When the target
// exists and opts.Confirmed is false nothing is touched and the outcome is
// RestoreConfirmationPending.
func (e *Engine) Restore(ctx context.Context, backupPath string, opts RestoreOptions) *Task[RestoreOutcome] {
	plan, err := e.PlanRestore(ctx, backupPath, opts.Target)
	if err != nil {
		e.notifyRestoreFailure(ctx, err)
		return completedTask(RestoreOutcome{State: RestoreFailed, Plan: plan}, err)
	}
	if plan.TargetExists && !opts.Confirmed {
		e.bc.logf("[restore] %s exists, confirmation required", plan.Target)
		return completedTask(RestoreOutcome{
			State:   RestoreConfirmationPending,
			Plan:    plan,
			Message: fmt.Sprintf("This will overwrite:\n%s", e.deps.FileSystem.Base(plan.Target)),
		}, nil)
	}

	run := func() (RestoreOutcome, error) {
		return e.executeRestore(ctx, plan)
	}
	if plan.Backup.Kind == CompressedArchive || plan.Backup.Size > e.cfg.AsyncThreshold {
		e.notify(ctx, Notification{
			Title:   "Restore In Progress...",
			Message: "Restoring " + plan.Backup.OriginalName,
		})
		return submitTask(e.worker, run)
	}
	out, err := run()
	return completedTask(out, err)
}

func (e *Engine) executeRestore(ctx context.Context, plan RestorePlan) (RestoreOutcome, error) {
	fs := e.deps.FileSystem
	out := RestoreOutcome{State: RestoreExecuting, Plan: plan}
	if ctx.Err() != nil {
		err := interruptedError(ctx)
		e.notifyRestoreFailure(ctx, err)
		out.State = RestoreFailed
		return out, err
	}

	var err error
	if plan.Backup.Kind == CompressedArchive {
		parent := fs.Dir(plan.Target)
		e.bc.logf("[restore] extract %s -> %s", plan.Backup.Path, plan.Target)
		err = e.deps.Archive.Extract(ctx, plan.Backup.Path, parent, fs.Base(plan.Target))
		out.Message = "Restored to:\n" + parent
	} else {
		e.bc.logf("[restore] copy %s -> %s", plan.Backup.Path, plan.Target)
		err = fs.CopyFile(ctx, plan.Backup.Path, plan.Target)
		out.Message = "Restored:\n" + fs.Base(plan.Target)
	}
	if err != nil {
		if ctx.Err() != nil {
			err = interruptedError(ctx)
		} else {
			err = classifyFSError(fs, err, "restore", plan.Backup.Path)
		}
		e.notifyRestoreFailure(ctx, err)
		out.State = RestoreFailed
		out.Message = UserMessage(err)
		return out, err
	}

	out.State = RestoreSucceeded
	e.notify(ctx, Notification{Title: "Restore Complete ✓", Message: out.Message})
	return out, nil
}

func (e *Engine) notifyRestoreFailure(ctx context.Context, err error) {
	e.bc.warnf("restore failed: %v", err)
	e.notify(ctx, Notification{Title: "Restore Failed", Message: UserMessage(err), Severity: SeverityError})
}
