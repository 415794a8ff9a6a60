/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖群体任务、
Agent 调用、LLM、缓存与数据库五个维度。

# 概述

Collector 通过 promauto.With 在调用方提供的 Registry 上注册指标，
同一进程可以安全地创建多个实例。所有记录方法对 nil 接收者安全。

# 主要能力

  - 任务指标：按 mode/status 计数，任务耗时与各阶段耗时 Histogram，
    共识置信度分布。
  - Agent 指标：决策调用计数与耗时（按 role），当前置信度 Gauge，
    执行结果计数。
  - LLM 指标：请求总数、耗时、Token 用量（prompt/completion）。
  - 缓存指标：命中与未命中计数，按 cache_type 分组。
  - 数据库指标：查询耗时 Histogram，按 database/operation 分组。
*/
package metrics
