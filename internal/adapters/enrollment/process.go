package enrollment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/ogurasousui/employee-provisioning/internal/core/employee"
	"github.com/ogurasousui/employee-provisioning/internal/platform/config"
	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"go.uber.org/zap"
)

// failureCode は起動失敗やシグナル終了など、終了コードを得られない場合の値です。
const failureCode = 1

// ProcessEnroller は外部の顔登録プログラムを子プロセスとして実行します。
type ProcessEnroller struct {
	command string
	args    []string
	dir     string
	env     []string
	logger  *zap.Logger
}

var _ employee.Enroller = (*ProcessEnroller)(nil)

// NewProcessEnroller は設定から ProcessEnroller を生成します。
func NewProcessEnroller(cfg config.EnrollmentConfig, log *zap.Logger) *ProcessEnroller {
	if log == nil {
		log = zap.L()
	}
	return &ProcessEnroller{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		dir:     cfg.Dir,
		env:     append([]string(nil), cfg.Env...),
		logger:  log.Named("enrollment"),
	}
}

// Enroll は表示名を最後の引数として登録プログラムを同期実行し、終了状態を返します。
// シェルは経由しません。プロセスは ctx のキャンセルに関係なく完了まで実行されます。
func (p *ProcessEnroller) Enroll(ctx context.Context, displayName string) employee.EnrollmentStatus {
	log := logger.FromContext(ctx, p.logger).With(zap.String("display_name", displayName))

	argv := make([]string, 0, len(p.args)+1)
	argv = append(argv, p.args...)
	argv = append(argv, displayName)

	cmd := exec.Command(p.command, argv...)
	cmd.Dir = p.dir
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("running enrollment process", zap.String("command", p.command), zap.Strings("args", argv))
	runErr := cmd.Run()

	output := strings.TrimSpace(stdout.String())
	if output != "" {
		log.Info("enrollment process output", zap.String("stdout", output))
	}
	if errOutput := strings.TrimSpace(stderr.String()); errOutput != "" {
		log.Warn("enrollment process error output", zap.String("stderr", errOutput))
	}

	code := exitCode(runErr)
	if code != 0 {
		log.Warn("enrollment process failed", zap.Int("exit_code", code), zap.Error(runErr))
	}
	return employee.EnrollmentStatus{Code: code, Output: output}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
	}
	return failureCode
}
