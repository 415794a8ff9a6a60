/*
Package testutil 提供 AgentSwarm 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 数据工具: MustJSON，fixtures 用它构造模型输出

# 子包

  - testutil/mocks: MockGenerator，支持按提示词路由、错误注入与调用记录
  - testutil/fixtures: Agent 决策与综合输出的 JSON 样例、示例邮件
*/
package testutil
