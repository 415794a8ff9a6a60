/*
包 cache 提供基于 Redis 的键值存储，用于持久化 Agent 置信度快照。

# 核心类型

  - Manager：持有 go-redis 客户端，所有键统一加 KeyPrefix，
    提供 Get/Set/Delete/Keys 以及 GetJSON/SetJSON 便捷方法。
  - Config：地址、密码、前缀、默认 TTL、连接池与健康检查间隔。

# 主要能力

  - 命中与未命中计入 metrics.Collector。
  - 后台定时 Ping，Close 后健康检查协程随之退出。
  - ErrCacheMiss 哨兵错误与 IsCacheMiss 判断函数。
*/
package cache
