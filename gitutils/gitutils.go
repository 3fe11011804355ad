package gitutils

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	githttp "gopkg.in/src-d/go-git.v4/plumbing/transport/http"

	"github.com/derekvan/canvas-markdown-tools/config"
)

var Log = config.Cfg().GetLogger()

func auth() *githttp.BasicAuth {
	token := config.Cfg().GHUserToken
	if token == "" {
		return nil
	}
	// GitHub accepts a personal access token as the basic-auth username.
	return &githttp.BasicAuth{Username: token, Password: "x-oauth-basic"}
}

// CloneCourseRepo clones a course repository into dir.
func CloneCourseRepo(cloneURL, dir string) (*git.Repository, error) {
	Log.Info("Cloning course repo: ", cloneURL)
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:   cloneURL,
		Auth:  auth(),
		Depth: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to clone %s", cloneURL)
	}
	return repo, nil
}

// CommitAndPushCourseFile commits the course file if the sync changed it
// (annotations for newly created entities) and pushes. A clean worktree is a
// no-op, not an error.
func CommitAndPushCourseFile(repo *git.Repository, dir, relPath string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "unable to open worktree")
	}
	if _, err := wt.Add(relPath); err != nil {
		return errors.Wrapf(err, "unable to stage %s", relPath)
	}
	status, err := wt.Status()
	if err != nil {
		return errors.Wrap(err, "unable to read worktree status")
	}
	if status.IsClean() {
		Log.Debugf("No annotation changes in %s, skipping commit", filepath.Join(dir, relPath))
		return nil
	}
	cfg := config.Cfg()
	_, err = wt.Commit(cfg.GHAutoGenCommitMsg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  cfg.SMTPFromName,
			Email: cfg.SMTPFromAddress,
			When:  time.Now(),
		},
	})
	if err != nil {
		return errors.Wrap(err, "unable to commit course file")
	}
	if err := repo.Push(&git.PushOptions{Auth: auth()}); err != nil && err != git.NoErrAlreadyUpToDate {
		return errors.Wrap(err, "unable to push course repo")
	}
	Log.Info("Pushed annotated course file back to the repo")
	return nil
}

// InWorkDir runs fn inside a fresh temp clone directory and cleans up after.
func InWorkDir(fn func(dir string) error) error {
	dir, err := ioutil.TempDir("", "course-sync-")
	if err != nil {
		return errors.Wrap(err, "unable to create work dir")
	}
	defer os.RemoveAll(dir)
	return fn(dir)
}
