package main

import (
	"fmt"
	"path/filepath"

	"github.com/VectorBits/Reentry/src/cmd"
	"github.com/VectorBits/Reentry/src/internal/config"
	"github.com/VectorBits/Reentry/src/internal/ui"
)

func main() {
	// 初始化默认配置文件
	if err := initConfigFile(); err != nil {
		cmd.PrintFatal(err)
	}

	if err := cmd.Run(); err != nil {
		cmd.PrintFatal(err)
	}
}

func initConfigFile() error {
	targetFile := filepath.Join("config", "settings.yaml")
	if config.GetConfigPath() != "" {
		return nil // 已存在，跳过
	}
	created, err := config.InitConfigFile(targetFile)
	if err != nil {
		return fmt.Errorf("failed to init config file: %w", err)
	}
	if created {
		ui.LogSuccess("Created default config file: %s", targetFile)
	}
	return nil
}
