/*
Package main 提供 AgentSwarm 命令行入口。

# 子命令

  - run      由组合式 Agent 池临时组建群体，对任务描述给出共识与备选方案
  - triage   常驻邮件名册处理一封邮件，可执行首选动作并反馈结果用于学习
  - version  显示构建注入的版本信息

# 装配

配置经 config.Loader 加载（YAML + AGENTSWARM_ 环境变量）并校验。
生成器为 OpenAI 兼容 Provider，外层包裹限流、重试与熔断。
启用 Redis 时置信度快照写入 Redis，启用数据库时结果审计写入 GORM 表。
--metrics-addr 或 metrics.enabled 在命令运行期间暴露 /metrics 与 /healthz。
*/
package main
