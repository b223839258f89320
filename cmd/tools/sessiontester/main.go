package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zoneportal/backend/internal/config"
	model "github.com/zoneportal/backend/internal/model/chatkit"
	"github.com/zoneportal/backend/internal/service/chatkit"
	"github.com/zoneportal/backend/pkg/logger"
	"github.com/zoneportal/backend/pkg/utils"
)

func main() {
	logger.Setup("debug", "console")

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("无法加载 .env，改用系统环境变量")
	}

	mode := flag.String("mode", "direct", "测试模式: direct 直接调用上游, http 调用本地后端")
	endpoint := flag.String("endpoint", "http://localhost:8080/api/chatkit/session", "http 模式下的后端地址")
	device := flag.String("device", "", "deviceId，留空则由服务端生成")
	timeout := flag.Duration("timeout", 30*time.Second, "整体超时时间")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var req model.SessionRequest
	if *device != "" {
		req.DeviceID = device
	}

	var (
		secret string
		err    error
	)
	switch *mode {
	case "direct":
		secret, err = runDirect(ctx, req)
	case "http":
		secret, err = runHTTP(ctx, *endpoint, req)
	default:
		flag.Usage()
		log.Fatal().Msg("请通过 -mode=direct 或 -mode=http 指定测试模式")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("会话创建失败")
	}

	log.Info().Str("client_secret", utils.MaskSecret(secret)).Msg("会话创建成功")
}

func runDirect(ctx context.Context, req model.SessionRequest) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("配置加载失败: %w", err)
	}

	svc := chatkit.NewService(cfg.ChatKit, &http.Client{})
	cred, err := svc.CreateSession(ctx, config.EnvSecrets{}.Secrets(), req)
	if err != nil {
		return "", err
	}
	return cred.ClientSecret, nil
}

func runHTTP(ctx context.Context, endpoint string, req model.SessionRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cred model.SessionCredential
	if err := json.Unmarshal(body, &cred); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if cred.ClientSecret == "" {
		fmt.Fprintln(os.Stderr, string(body))
		return "", fmt.Errorf("response has no client_secret")
	}
	return cred.ClientSecret, nil
}
