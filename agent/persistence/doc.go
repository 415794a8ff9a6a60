// 版权所有 2024 AgentSwarm Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供常驻群体学习状态的持久化存储抽象及多后端实现。

# 概述

常驻名册中的 Agent 通过学习循环不断调整置信度。本包负责两类持久化需求：
置信度快照（进程重启后恢复学习结果）与动作结果审计日志（追溯每次
调整的来龙去脉）。上层只依赖接口，后端按部署形态选择。

# 核心接口

  - Store: 所有存储的基础接口，提供 Close 和 Ping 健康检查。
  - ConfidenceStore: 置信度快照的保存、单个读取与全量读取。
  - OutcomeStore: 结果记录的追加与按 Agent 倒序查询。

# 后端实现

  - MemoryConfidenceStore / MemoryOutcomeStore: 内存实现，适合开发与测试。
  - RedisConfidenceStore: 基于 internal/cache.Manager，快照以 JSON 存储，
    键为 "<prefix>confidence:<agentID>"，带过期时间。
  - GormOutcomeStore: 基于 internal/database.PoolManager，支持
    PostgreSQL、MySQL 与 SQLite，首次创建时自动迁移表结构，
    写入在带重试的事务中完成。

# 工厂方法

NewConfidenceStore 与 NewOutcomeStore 按 StoreType 选择后端。
*/
package persistence
