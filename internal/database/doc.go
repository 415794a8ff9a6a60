/*
包 database 提供基于 GORM 的数据库连接池管理，用于执行结果审计日志。

# 核心类型

  - PoolManager：持有 gorm.DB 与底层 sql.DB，负责连接池参数、
    健康检查、事务执行与查询耗时指标。
  - PoolConfig：连接池配置。

# 主要能力

  - Open 按 config.DatabaseConfig 选择 postgres、mysql 或 sqlite（纯 Go）方言。
  - WithTransaction / WithTransactionRetry：事务执行，死锁、序列化失败、
    连接中断等错误按指数退避重试。
  - Query：只读查询封装，耗时计入 metrics.Collector。
*/
package database
