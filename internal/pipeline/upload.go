package pipeline

import (
	"context"
	"fmt"
	"os"

	"aecvision/internal/logging"
	"aecvision/internal/report"
	"aecvision/internal/services"
	"aecvision/internal/services/hfhub"
)

// Upload publishes the last built dataset file to the configured dataset
// repository.
func (r *Runner) Upload(ctx context.Context) (*report.Summary, error) {
	s, err := r.begin(ctx, "upload")
	if err != nil {
		return nil, err
	}
	return s.summary, r.finish(s, r.upload(s))
}

func (r *Runner) upload(s *session) error {
	if err := r.cfg.ValidateUpload(); err != nil {
		return services.Wrap(services.ErrConfiguration, "upload", "config", "", err)
	}
	path := r.cfg.Dataset.OutputPath
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrIO, "upload", "stat dataset", "run build first", err)
	}

	client := hfhub.NewClient(hfhub.Config{
		Token:    r.cfg.Upload.Token,
		BaseURL:  r.cfg.Upload.BaseURL,
		RepoID:   r.cfg.Upload.RepoID,
		Revision: r.cfg.Upload.Revision,
	}, r.hubOptions...)

	if r.cfg.Upload.CreateRepo {
		if err := client.CreateRepo(s.ctx, r.cfg.Upload.Private); err != nil {
			return err
		}
	}
	commit, err := client.UploadFile(s.ctx, path, r.cfg.Upload.PathInRepo, fmt.Sprintf("Update dataset (run %s)", s.runID))
	if err != nil {
		return err
	}

	s.summary.Set("bytes", int(info.Size()))
	s.summary.OutputPath = commit.CommitURL
	s.logger.Info("dataset uploaded",
		logging.String(logging.FieldEventType, "dataset_uploaded"),
		logging.String("repo_id", r.cfg.Upload.RepoID),
		logging.String("revision", r.cfg.Upload.Revision),
		logging.String("commit_url", commit.CommitURL),
		logging.Int64("bytes", info.Size()),
	)
	return nil
}
