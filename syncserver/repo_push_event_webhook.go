package syncserver

import (
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/exlinc/golang-utils/jsonhttp"

	"github.com/derekvan/canvas-markdown-tools/canvas"
	"github.com/derekvan/canvas-markdown-tools/config"
	"github.com/derekvan/canvas-markdown-tools/coursemd"
	"github.com/derekvan/canvas-markdown-tools/gitutils"
	"github.com/derekvan/canvas-markdown-tools/smtputils"
)

// repoPushEventWebhook syncs a course repo into Canvas whenever its default
// branch moves: clone, parse the course file, push, then commit the newly
// assigned annotations back. Pushes that only contain our own auto-generated
// commits are ignored, otherwise the write-back would loop forever.
func repoPushEventWebhook(w http.ResponseWriter, r *http.Request) {
	reqObj := RepoPushEventRequest{}
	err := secureJSONDecode(w, r, config.Cfg().GHWebhookSecret, &reqObj)
	if err != nil {
		return
	}
	branch := reqObj.Repository.DefaultBranch
	if branch == "" {
		branch = "master"
	}
	if reqObj.Ref != "refs/heads/"+branch {
		Log.Info("Skipping push on ref: ", reqObj.Ref)
		jsonhttp.JSONSuccess(w, nil, "No-op, must be default branch to sync")
		return
	}
	if len(reqObj.Commits) < 1 {
		Log.Info("Skipping. No commits")
		jsonhttp.JSONSuccess(w, nil, "No-op, must be commit-based")
		return
	}
	hasRealCommits := false
	for _, commit := range reqObj.Commits {
		if !strings.Contains(commit.Message, config.Cfg().GHAutoGenCommitMsg) {
			hasRealCommits = true
			break
		}
	}
	if !hasRealCommits {
		Log.Info("Skipping. Auto-gen commits only")
		jsonhttp.JSONSuccess(w, nil, "No-op, auto-gen commit")
		return
	}

	err = gitutils.InWorkDir(func(dir string) error {
		repo, err := gitutils.CloneCourseRepo(reqObj.Repository.CloneURL, dir)
		if err != nil {
			return err
		}
		coursePath := filepath.Join(dir, config.Cfg().CourseFilePath)
		data, err := ioutil.ReadFile(coursePath)
		if err != nil {
			return err
		}
		course, err := coursemd.Parse(string(data))
		if err != nil {
			return err
		}
		client, err := canvas.ClientForCourse(course)
		if err != nil {
			return err
		}
		sum, err := canvas.Push(r.Context(), client, course)
		if err != nil {
			return err
		}
		if err := ioutil.WriteFile(coursePath, []byte(coursemd.Serialize(course)), 0644); err != nil {
			return err
		}
		if err := gitutils.CommitAndPushCourseFile(repo, dir, config.Cfg().CourseFilePath); err != nil {
			return err
		}
		if err := smtputils.SendSyncReport(reqObj.Repository.FullName, sum); err != nil {
			Log.Warn("Unable to send sync report: ", err)
		}
		return nil
	})
	if err != nil {
		Log.Error("Course sync failed: ", err)
		jsonhttp.JSONInternalError(w, "An error occurred syncing the course", "")
		return
	}

	jsonhttp.JSONSuccess(w, nil, "Successfully synced the course")
}
