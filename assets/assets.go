// Package assets 内嵌随服务发布的关卡文件
package assets

import "embed"

// FS 包含 levels.json 与 maps/*.json
//
//go:embed levels.json maps/*.json
var FS embed.FS
