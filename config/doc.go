// Package config 提供 AgentSwarm 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（AGENTSWARM_ 前缀）的顺序叠加，
// 覆盖群体共识参数、LLM 接入、Redis 快照、审计数据库、日志、遥测与指标。
// YAML 中的 ${VAR} 在解析前由环境变量替换，适合放置 API Key 等密钥。
package config
