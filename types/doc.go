/*
Package types 提供 Agent Swarm 引擎的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent/swarm、llm、
agent/persistence 等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider、AgentID 标记

# 主要能力

  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 按错误码匹配：errors.Is(err, types.NewError(code, "")) 对同码错误返回 true
*/
package types
