/*
包 swarm 实现群体共识引擎：从专长 Agent 池中按相关性选出一组 Agent，
并行收集各自决策，经两两交叉验证调整置信度后合成单一共识，并给出
少数派备选方案。

# 流程

选择（SelectAgents）→ 并行决策（Decider）→ 交叉验证（CrossValidate）
→ 共识构建（ConsensusBuilder）→ 备选方案（AlternativeGenerator）。
各阶段严格顺序执行，阶段内部并发；单个 Agent 失败或超时不影响其他 Agent。

# 两种入口

  - Engine: 临时任务入口，按能力目录（默认 7 角色 × 5 专长）生成组合式池，
    ProcessTask 返回 ConsensusResult。
  - Swarm: 常驻邮件群体，8 个固定名册 Agent 携带能力置信度，
    ProcessDecision 形成决策，ExecuteAction 在置信度门槛下执行动作，
    RecordOutcome 驱动学习循环，可选快照存储与结果审计日志。

# 动作

Action 是封闭的和类型（Categorize、Prioritize、DraftReply、Schedule、
Summarize、Archive、Flag、FollowUp、UnknownAction），由 ParseAction 从
动作标识构造，ActionExecutor 逐一处理。
*/
package swarm
